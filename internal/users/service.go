package users

import (
	"context"
	"fmt"

	"github.com/goitProjects/SBC-backend/internal/config"
	"github.com/goitProjects/SBC-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Service is the credential store: it owns password hashing and the user's
// project references.
type Service struct {
	repo   UserRepository
	cost   int
	hashes *semaphore.Weighted
}

func NewService(r UserRepository, cfg config.HashConfig) *Service {
	cost := cfg.Cost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	n := int64(cfg.Concurrency)
	if n <= 0 {
		n = 1
	}
	return &Service{repo: r, cost: cost, hashes: semaphore.NewWeighted(n)}
}

// maxPasswordBytes is the bcrypt input limit. Longer passwords are cut to
// this length before hashing and comparing.
const maxPasswordBytes = 72

func passwordBytes(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

// hash and compare hold a semaphore slot while bcrypt runs.
func (s *Service) hash(ctx context.Context, password string) (string, error) {
	if err := s.hashes.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.hashes.Release(1)
	b, err := bcrypt.GenerateFromPassword(passwordBytes(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (s *Service) compare(ctx context.Context, hash, candidate string) (bool, error) {
	if err := s.hashes.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer s.hashes.Release(1)
	return bcrypt.CompareHashAndPassword([]byte(hash), passwordBytes(candidate)) == nil, nil
}

// Register stores a new user. The e-mail is matched exactly as given.
func (s *Service) Register(ctx context.Context, email, password string) (*models.User, error) {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}
	h, err := s.hash(ctx, password)
	if err != nil {
		return nil, err
	}
	u := &models.User{Email: email, PasswordHash: h, Projects: []primitive.ObjectID{}}
	if err := s.repo.Create(ctx, u); err != nil {
		if err == ErrAlreadyExists {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// VerifyPassword reports whether candidate matches the user's stored hash.
func (s *Service) VerifyPassword(ctx context.Context, u *models.User, candidate string) (bool, error) {
	return s.compare(ctx, u.PasswordHash, candidate)
}

// SetPassword rehashes and persists. The caller must have authorized the change.
func (s *Service) SetPassword(ctx context.Context, u *models.User, password string) error {
	h, err := s.hash(ctx, password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePasswordHash(ctx, u.ID, h); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	u.PasswordHash = h
	return nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// FindByID looks a user up by hex id. A malformed id is reported as absent.
func (s *Service) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return s.repo.GetByID(ctx, oid)
}

// AddProject appends projectID to the user's projects.
func (s *Service) AddProject(ctx context.Context, u *models.User, projectID primitive.ObjectID) error {
	if err := s.repo.AddProject(ctx, u.ID, projectID); err != nil {
		return fmt.Errorf("add project to user: %w", err)
	}
	if !u.HasProject(projectID) {
		u.Projects = append(u.Projects, projectID)
	}
	return nil
}

// RemoveProject drops projectID from every user that references it.
func (s *Service) RemoveProject(ctx context.Context, projectID primitive.ObjectID) error {
	if err := s.repo.RemoveProject(ctx, projectID); err != nil {
		return fmt.Errorf("remove project from users: %w", err)
	}
	return nil
}
