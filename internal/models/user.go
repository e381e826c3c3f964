package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Email        string               `bson:"email" json:"email"`
	PasswordHash string               `bson:"passwordHash" json:"-"`
	Projects     []primitive.ObjectID `bson:"projects" json:"projects"`
}

// HasProject reports whether id is among the user's project references.
func (u *User) HasProject(id primitive.ObjectID) bool {
	for _, p := range u.Projects {
		if p == id {
			return true
		}
	}
	return false
}

// Clone returns a copy that does not share the Projects slice.
func (u *User) Clone() *User {
	cp := *u
	cp.Projects = append([]primitive.ObjectID(nil), u.Projects...)
	return &cp
}
