package sessions

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is a server-side login record. Its existence is the only proof
// that the token pair issued for it is still usable.
type Session struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	UserID    primitive.ObjectID `bson:"uid" json:"uid"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
