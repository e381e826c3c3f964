package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository provides session persistence operations.
// GetByID returns (nil, nil) when the session does not exist or is older
// than the store's TTL, and Delete succeeds for unknown ids.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Session, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
	ttl time.Duration
}

// NewMongoRepository returns a repository whose sessions live for ttl.
// A positive ttl creates a TTL index on createdAt; zero keeps sessions until
// they are deleted.
func NewMongoRepository(ctx context.Context, col *mongo.Collection, ttl time.Duration) (*MongoRepository, error) {
	if ttl > 0 {
		idx := mongo.IndexModel{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(ttl / time.Second)),
		}
		if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
			return nil, fmt.Errorf("create sessions ttl index: %w", err)
		}
	}
	return &MongoRepository{col: col, ttl: ttl}, nil
}

func (r *MongoRepository) Create(ctx context.Context, s *Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*Session, error) {
	filter := bson.M{"_id": id}
	// the TTL monitor runs about once a minute
	if r.ttl > 0 {
		filter["createdAt"] = bson.M{"$gt": time.Now().UTC().Add(-r.ttl)}
	}
	var s Session
	if err := r.col.FindOne(ctx, filter).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// MemoryRepository keeps sessions in process memory. Expired sessions are
// dropped when they are looked up.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[primitive.ObjectID]Session
	ttl   time.Duration
}

// NewMemoryRepository returns a store whose sessions live for ttl; zero
// means no expiry.
func NewMemoryRepository(ttl time.Duration) *MemoryRepository {
	return &MemoryRepository{store: map[primitive.ObjectID]Session{}, ttl: ttl}
}

func (m *MemoryRepository) Create(_ context.Context, s *Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.ID] = *s
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id primitive.ObjectID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return nil, nil
	}
	if m.ttl > 0 && time.Since(s.CreatedAt) > m.ttl {
		delete(m.store, id)
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

// Len reports the number of stored sessions.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}
