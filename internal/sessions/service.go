package sessions

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service wraps repository operations with business logic
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

// Create stores a fresh session for userID.
func (s *Service) Create(ctx context.Context, userID primitive.ObjectID) (*Session, error) {
	sess := &Session{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Find returns the session with the given hex id, or nil when it does not
// exist. Malformed ids are treated as absent.
func (s *Service) Find(ctx context.Context, id string) (*Session, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return s.repo.GetByID(ctx, oid)
}

// Delete removes the session. Unknown or malformed ids are not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
