// Package auth implements the account and session flows: register, login,
// token refresh with session rotation, logout and password reset by mail.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/goitProjects/SBC-backend/internal/board"
	"github.com/goitProjects/SBC-backend/internal/mail"
	"github.com/goitProjects/SBC-backend/internal/models"
	"github.com/goitProjects/SBC-backend/internal/sessions"
	"github.com/goitProjects/SBC-backend/internal/tokens"
	"github.com/goitProjects/SBC-backend/internal/users"
	"github.com/goitProjects/SBC-backend/pkg/apperr"
	"github.com/goitProjects/SBC-backend/pkg/logger"
	"github.com/goitProjects/SBC-backend/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Users is the credential store.
type Users interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	VerifyPassword(ctx context.Context, u *models.User, candidate string) (bool, error)
	SetPassword(ctx context.Context, u *models.User, password string) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Sessions is the session store. Find returns nil for unknown ids and
// Delete is idempotent.
type Sessions interface {
	Create(ctx context.Context, userID primitive.ObjectID) (*sessions.Session, error)
	Find(ctx context.Context, id string) (*sessions.Session, error)
	Delete(ctx context.Context, id string) error
}

// Records are the three fetches the login payload is assembled from.
type Records interface {
	ProjectsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*board.Project, error)
	SprintsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*board.Sprint, error)
	TasksByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*board.Task, error)
}

// Mailer queues a message for background delivery.
type Mailer interface {
	Dispatch(m mail.Message)
}

var (
	ErrWrongPassword = apperr.New(apperr.KindForbidden, "Password is wrong")
	ErrUserNotFound  = apperr.New(apperr.KindNotFound, "User not found")
)

// Registered is returned by Register.
type Registered struct {
	Email string             `json:"email"`
	ID    primitive.ObjectID `json:"id"`
}

// UserData is the login summary of the account with its projects expanded.
type UserData struct {
	Email    string              `json:"email"`
	ID       primitive.ObjectID  `json:"id"`
	Projects []board.ProjectTree `json:"projects"`
}

type LoginResult struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	SessionID    string   `json:"sid"`
	Data         UserData `json:"data"`
}

type RefreshResult struct {
	NewAccessToken  string `json:"newAccessToken"`
	NewRefreshToken string `json:"newRefreshToken"`
	NewSessionID    string `json:"newSid"`
}

type Service struct {
	users    Users
	sessions Sessions
	tokens   *tokens.Issuer
	records  Records
	mailer   Mailer
	sender   string
}

func NewService(u Users, s Sessions, t *tokens.Issuer, r Records, m Mailer, sender string) *Service {
	return &Service{users: u, sessions: s, tokens: t, records: r, mailer: m, sender: sender}
}

func internal(op string, err error) error {
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, email, password string) (res *Registered, err error) {
	defer func() { metrics.RecordAuth("register", err) }()

	u, err := s.users.Register(ctx, email, password)
	if errors.Is(err, users.ErrAlreadyExists) {
		return nil, apperr.Newf(apperr.KindConflict, "User with %s email already exists", email)
	}
	if err != nil {
		return nil, internal("register", err)
	}
	return &Registered{Email: u.Email, ID: u.ID}, nil
}

// Login checks the credentials, opens a session and returns a token pair
// bound to it together with the user's project tree.
func (s *Service) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	defer func() { metrics.RecordAuth("login", err) }()

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, internal("find user", err)
	}
	if u == nil {
		return nil, apperr.Newf(apperr.KindForbidden, "User with %s email doesn't exist", email)
	}
	ok, err := s.users.VerifyPassword(ctx, u, password)
	if err != nil {
		return nil, internal("verify password", err)
	}
	if !ok {
		return nil, ErrWrongPassword
	}

	sess, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, internal("create session", err)
	}
	access, refresh, err := s.tokens.IssuePair(u.ID.Hex(), sess.ID.Hex())
	if err != nil {
		return nil, internal("issue tokens", err)
	}
	projects, err := s.projectTree(ctx, u.Projects)
	if err != nil {
		return nil, internal("load projects", err)
	}
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    sess.ID.Hex(),
		Data:         UserData{Email: u.Email, ID: u.ID, Projects: projects},
	}, nil
}

// projectTree expands project ids into projects, then each project's
// sprints, then each sprint's tasks. Dangling ids are skipped.
func (s *Service) projectTree(ctx context.Context, ids []primitive.ObjectID) ([]board.ProjectTree, error) {
	projects, err := s.records.ProjectsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]board.ProjectTree, 0, len(projects))
	for _, p := range projects {
		sprints, err := s.records.SprintsByIDs(ctx, p.Sprints)
		if err != nil {
			return nil, err
		}
		pt := board.ProjectTree{Project: *p, Sprints: make([]board.SprintTree, 0, len(sprints))}
		for _, sp := range sprints {
			tasks, err := s.records.TasksByIDs(ctx, sp.Tasks)
			if err != nil {
				return nil, err
			}
			pt.Sprints = append(pt.Sprints, board.SprintTree{Sprint: *sp, Tasks: tasks})
		}
		out = append(out, pt)
	}
	return out, nil
}

// Authenticate resolves an access token to the user and session it was
// issued for. Both must still exist.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.User, *sessions.Session, error) {
	claims, err := s.tokens.VerifySession(tokens.Access, accessToken)
	if err != nil {
		return nil, nil, apperr.ErrUnauthorized
	}
	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, internal("find user", err)
	}
	if u == nil {
		return nil, nil, apperr.ErrInvalidUser
	}
	sess, err := s.sessions.Find(ctx, claims.SessionID)
	if err != nil {
		return nil, nil, internal("find session", err)
	}
	if sess == nil {
		return nil, nil, apperr.ErrInvalidSession
	}
	return u, sess, nil
}

// Refresh exchanges a refresh token for a new pair bound to a new session.
// bodySessionID must name a live session; it is deleted when the token does
// not verify. The user and the session being rotated are the ones named in
// the token.
func (s *Service) Refresh(ctx context.Context, bodySessionID, refreshToken string) (res *RefreshResult, err error) {
	defer func() { metrics.RecordAuth("refresh", err) }()

	active, err := s.sessions.Find(ctx, bodySessionID)
	if err != nil {
		return nil, internal("find session", err)
	}
	if active == nil {
		return nil, apperr.ErrInvalidSession
	}
	claims, err := s.tokens.VerifySession(tokens.Refresh, refreshToken)
	if err != nil {
		if derr := s.sessions.Delete(ctx, bodySessionID); derr != nil {
			return nil, internal("delete session", derr)
		}
		logger.Warnf("refresh rejected: invalid token, session %s revoked", bodySessionID)
		return nil, apperr.ErrUnauthorized
	}

	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, internal("find user", err)
	}
	if u == nil {
		return nil, apperr.ErrInvalidUser
	}
	old, err := s.sessions.Find(ctx, claims.SessionID)
	if err != nil {
		return nil, internal("find session", err)
	}
	if old == nil {
		return nil, apperr.ErrInvalidSession
	}

	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		return nil, internal("delete session", err)
	}
	next, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, internal("create session", err)
	}
	access, refresh, err := s.tokens.IssuePair(u.ID.Hex(), next.ID.Hex())
	if err != nil {
		return nil, internal("issue tokens", err)
	}
	metrics.SessionRotations.Inc()
	logger.Debugf("session %s rotated to %s for user %s", old.ID.Hex(), next.ID.Hex(), u.ID.Hex())
	return &RefreshResult{NewAccessToken: access, NewRefreshToken: refresh, NewSessionID: next.ID.Hex()}, nil
}

// Logout deletes the session. Deleting an already-deleted session succeeds.
func (s *Service) Logout(ctx context.Context, sess *sessions.Session) (err error) {
	defer func() { metrics.RecordAuth("logout", err) }()

	if sess == nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, sess.ID.Hex()); err != nil {
		return internal("delete session", err)
	}
	return nil
}

// RequestPasswordReset mails a reset link for email. Whether an account
// exists is not checked and the call succeeds regardless of delivery.
func (s *Service) RequestPasswordReset(ctx context.Context, email, baseURL string) (err error) {
	defer func() { metrics.RecordAuth("reset_request", err) }()

	token, err := s.tokens.IssueReset(email)
	if err != nil {
		return internal("issue reset token", err)
	}
	link := baseURL + "/password/reset/?token=" + token
	s.mailer.Dispatch(mail.ResetMessage(email, s.sender, link))
	return nil
}

// ResetPassword sets a new password for the account named in the reset token.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) (err error) {
	defer func() { metrics.RecordAuth("reset", err) }()

	claims, err := s.tokens.VerifyReset(resetToken)
	if err != nil {
		return apperr.ErrUnauthorized
	}
	u, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		return internal("find user", err)
	}
	if u == nil {
		return ErrUserNotFound
	}
	if err := s.users.SetPassword(ctx, u, newPassword); err != nil {
		return internal("set password", err)
	}
	return nil
}
