package users

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goitProjects/SBC-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrAlreadyExists is returned when the e-mail is already registered.
var ErrAlreadyExists = errors.New("user already exists")

// UserRepository defines persistence operations for users.
// Lookups return (nil, nil) when the user does not exist.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error
	AddProject(ctx context.Context, id, projectID primitive.ObjectID) error
	RemoveProject(ctx context.Context, projectID primitive.ObjectID) error
}

// MongoUserRepository implements UserRepository using MongoDB
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection
// and makes sure the unique e-mail index exists.
func NewMongoUserRepository(ctx context.Context, col *mongo.Collection) (*MongoUserRepository, error) {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("create users email index: %w", err)
	}
	return &MongoUserRepository{col: col}, nil
}

func (r *MongoUserRepository) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Projects == nil {
		u.Projects = []primitive.ObjectID{}
	}
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) UpdatePasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"passwordHash": hash}})
	return err
}

func (r *MongoUserRepository) AddProject(ctx context.Context, id, projectID primitive.ObjectID) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"projects": projectID}})
	return err
}

func (r *MongoUserRepository) RemoveProject(ctx context.Context, projectID primitive.ObjectID) error {
	_, err := r.col.UpdateMany(ctx, bson.M{"projects": projectID}, bson.M{"$pull": bson.M{"projects": projectID}})
	return err
}

// MemoryUserRepository keeps users in a map. Used with STORAGE_DRIVER=memory
// and in tests.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[primitive.ObjectID]*models.User
	byEmail map[string]primitive.ObjectID
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    map[primitive.ObjectID]*models.User{},
		byEmail: map[string]primitive.ObjectID{},
	}
}

func (m *MemoryUserRepository) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return ErrAlreadyExists
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Projects == nil {
		u.Projects = []primitive.ObjectID{}
	}
	m.byID[u.ID] = u.Clone()
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *MemoryUserRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.byID[id]; ok {
		return u.Clone(), nil
	}
	return nil, nil
}

func (m *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.byEmail[email]; ok {
		return m.byID[id].Clone(), nil
	}
	return nil, nil
}

func (m *MemoryUserRepository) UpdatePasswordHash(_ context.Context, id primitive.ObjectID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (m *MemoryUserRepository) AddProject(_ context.Context, id, projectID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.HasProject(projectID) {
		return nil
	}
	u.Projects = append(u.Projects, projectID)
	return nil
}

func (m *MemoryUserRepository) RemoveProject(_ context.Context, projectID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		kept := u.Projects[:0]
		for _, p := range u.Projects {
			if p != projectID {
				kept = append(kept, p)
			}
		}
		u.Projects = kept
	}
	return nil
}
