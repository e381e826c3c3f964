package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goitProjects/SBC-backend/internal/board"
	"github.com/goitProjects/SBC-backend/internal/board/repository"
	"github.com/goitProjects/SBC-backend/internal/config"
	"github.com/goitProjects/SBC-backend/internal/mail"
	"github.com/goitProjects/SBC-backend/internal/sessions"
	"github.com/goitProjects/SBC-backend/internal/tokens"
	"github.com/goitProjects/SBC-backend/internal/users"
	"github.com/goitProjects/SBC-backend/pkg/apperr"
	"github.com/goitProjects/SBC-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (o *outbox) Dispatch(m mail.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, m)
}

func (o *outbox) last(t *testing.T) mail.Message {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent)
	return o.sent[len(o.sent)-1]
}

type fixture struct {
	svc      *Service
	cfg      *config.Config
	users    *users.Service
	sessRepo *sessions.MemoryRepository
	records  *repository.MemoryRepo
	outbox   *outbox
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Access:  config.TokenPolicy{Secret: "access-secret", TTL: time.Hour},
			Refresh: config.TokenPolicy{Secret: "refresh-secret", TTL: 24 * time.Hour},
			Reset:   config.TokenPolicy{Secret: "reset-secret", TTL: 15 * time.Minute},
		},
		Hash: config.HashConfig{Cost: bcrypt.MinCost, Concurrency: 2},
		Mail: config.MailConfig{Sender: "noreply@sbc.test"},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()
	us := users.NewService(users.NewMemoryUserRepository(), cfg.Hash)
	sr := sessions.NewMemoryRepository(0)
	records := repository.NewMemoryRepo()
	box := &outbox{}
	svc := NewService(us, sessions.NewService(sr), tokens.NewIssuer(cfg), records, box, cfg.Mail.Sender)
	return &fixture{svc: svc, cfg: cfg, users: us, sessRepo: sr, records: records, outbox: box}
}

func (f *fixture) login(t *testing.T, email, password string) *LoginResult {
	t.Helper()
	_, err := f.svc.Register(context.Background(), email, password)
	require.NoError(t, err)
	res, err := f.svc.Login(context.Background(), email, password)
	require.NoError(t, err)
	return res
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", res.Email)
	assert.False(t, res.ID.IsZero())

	_, err = f.svc.Register(ctx, "a@x.com", "other")
	assert.Equal(t, http.StatusConflict, apperr.StatusOf(err))
	assert.Equal(t, "User with a@x.com email already exists", apperr.MessageOf(err))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "nobody@x.com", "secret1")
	assert.Equal(t, http.StatusForbidden, apperr.StatusOf(err))
	assert.Equal(t, "User with nobody@x.com email doesn't exist", apperr.MessageOf(err))

	_, err = f.svc.Login(ctx, "a@x.com", "wrong")
	assert.Equal(t, ErrWrongPassword, err)
	assert.Equal(t, 0, f.sessRepo.Len())

	res, err := f.svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.sessRepo.Len())
	assert.Equal(t, "a@x.com", res.Data.Email)
	assert.Empty(t, res.Data.Projects)

	u, s, err := f.svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.Data.ID, u.ID)
	assert.Equal(t, res.SessionID, s.ID.Hex())
}

func TestLogin_OpensIndependentSessions(t *testing.T) {
	f := newFixture(t)
	first := f.login(t, "a@x.com", "secret1")
	second, err := f.svc.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, 2, f.sessRepo.Len())
}

func TestLogin_ExpandsProjectTree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	u, _ := f.users.FindByEmail(ctx, "a@x.com")

	task := &board.Task{Title: "t1"}
	require.NoError(t, f.records.CreateTask(ctx, task))
	sprint := &board.Sprint{Title: "s1", Tasks: []primitive.ObjectID{task.ID, primitive.NewObjectID()}}
	require.NoError(t, f.records.CreateSprint(ctx, sprint))
	project := &board.Project{Title: "p1", Members: []string{u.Email}, Sprints: []primitive.ObjectID{sprint.ID}}
	require.NoError(t, f.records.CreateProject(ctx, project))
	require.NoError(t, f.users.AddProject(ctx, u, project.ID))
	require.NoError(t, f.users.AddProject(ctx, u, primitive.NewObjectID()))

	res, err := f.svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.Len(t, res.Data.Projects, 1)
	tree := res.Data.Projects[0]
	assert.Equal(t, "p1", tree.Title)
	require.Len(t, tree.Sprints, 1)
	assert.Equal(t, "s1", tree.Sprints[0].Title)
	require.Len(t, tree.Sprints[0].Tasks, 1)
	assert.Equal(t, "t1", tree.Sprints[0].Tasks[0].Title)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.login(t, "a@x.com", "secret1")

	_, _, err := f.svc.Authenticate(ctx, "garbage")
	assert.Equal(t, apperr.ErrUnauthorized, err)

	// a refresh token is not an access token
	_, _, err = f.svc.Authenticate(ctx, res.RefreshToken)
	assert.Equal(t, apperr.ErrUnauthorized, err)

	u, _ := f.users.FindByEmail(ctx, "a@x.com")
	issuer := tokens.NewIssuer(f.cfg)
	orphan, err := issuer.IssueSession(tokens.Access, primitive.NewObjectID().Hex(), res.SessionID)
	require.NoError(t, err)
	_, _, err = f.svc.Authenticate(ctx, orphan)
	assert.Equal(t, apperr.ErrInvalidUser, err)

	stale, err := issuer.IssueSession(tokens.Access, u.ID.Hex(), primitive.NewObjectID().Hex())
	require.NoError(t, err)
	_, _, err = f.svc.Authenticate(ctx, stale)
	assert.Equal(t, apperr.ErrInvalidSession, err)
}

func TestLogout_InvalidatesAccessToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.login(t, "a@x.com", "secret1")

	_, sess, err := f.svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, sess))
	require.NoError(t, f.svc.Logout(ctx, sess))

	_, _, err = f.svc.Authenticate(ctx, res.AccessToken)
	assert.Equal(t, apperr.ErrInvalidSession, err)
}

func TestRefresh_Rotates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.login(t, "a@x.com", "secret1")
	before := testutil.ToFloat64(metrics.SessionRotations)

	next, err := f.svc.Refresh(ctx, res.SessionID, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.SessionID, next.NewSessionID)
	assert.Equal(t, 1, f.sessRepo.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionRotations)-before)

	// the old pair is dead, the new one works
	_, _, err = f.svc.Authenticate(ctx, res.AccessToken)
	assert.Equal(t, apperr.ErrInvalidSession, err)
	_, s, err := f.svc.Authenticate(ctx, next.NewAccessToken)
	require.NoError(t, err)
	assert.Equal(t, next.NewSessionID, s.ID.Hex())

	// replaying the rotated refresh token fails on the body sid
	_, err = f.svc.Refresh(ctx, res.SessionID, res.RefreshToken)
	assert.Equal(t, apperr.ErrInvalidSession, err)

	// live body sid but the token's session is gone
	_, err = f.svc.Refresh(ctx, next.NewSessionID, res.RefreshToken)
	assert.Equal(t, apperr.ErrInvalidSession, err)
}

func TestRefresh_BadTokenRevokesBodySession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.login(t, "a@x.com", "secret1")

	_, err := f.svc.Refresh(ctx, res.SessionID, res.AccessToken)
	assert.Equal(t, apperr.ErrUnauthorized, err)
	assert.Equal(t, 0, f.sessRepo.Len())

	_, _, err = f.svc.Authenticate(ctx, res.AccessToken)
	assert.Equal(t, apperr.ErrInvalidSession, err)
}

func TestRefresh_UnknownBodySession(t *testing.T) {
	f := newFixture(t)
	res := f.login(t, "a@x.com", "secret1")

	_, err := f.svc.Refresh(context.Background(), primitive.NewObjectID().Hex(), res.RefreshToken)
	assert.Equal(t, apperr.ErrInvalidSession, err)
	assert.Equal(t, 1, f.sessRepo.Len())
}

func TestRefresh_DeletedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.login(t, "a@x.com", "secret1")

	issuer := tokens.NewIssuer(f.cfg)
	refresh, err := issuer.IssueSession(tokens.Refresh, primitive.NewObjectID().Hex(), res.SessionID)
	require.NoError(t, err)
	_, err = f.svc.Refresh(ctx, res.SessionID, refresh)
	assert.Equal(t, apperr.ErrInvalidUser, err)
}

func resetToken(t *testing.T, m mail.Message) string {
	t.Helper()
	i := strings.Index(m.Text, "http")
	require.GreaterOrEqual(t, i, 0)
	u, err := url.Parse(strings.TrimSpace(m.Text[i:]))
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, "a@x.com", "secret1")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "a@x.com", "https://sbc.test"))
	msg := f.outbox.last(t)
	assert.Equal(t, "a@x.com", msg.To)
	assert.Equal(t, "noreply@sbc.test", msg.From)
	assert.Contains(t, msg.Text, "https://sbc.test/password/reset/?token=")

	token := resetToken(t, msg)
	require.NoError(t, f.svc.ResetPassword(ctx, token, "newsecret"))

	_, err := f.svc.Login(ctx, "a@x.com", "secret1")
	assert.Equal(t, ErrWrongPassword, err)
	_, err = f.svc.Login(ctx, "a@x.com", "newsecret")
	assert.NoError(t, err)
}

func TestPasswordReset_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// unknown e-mails still get a link
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ghost@x.com", "https://sbc.test"))
	token := resetToken(t, f.outbox.last(t))
	err := f.svc.ResetPassword(ctx, token, "whatever")
	assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))
	assert.Equal(t, "User not found", apperr.MessageOf(err))

	assert.Equal(t, apperr.ErrUnauthorized, f.svc.ResetPassword(ctx, "garbage", "whatever"))

	// session tokens cannot reset passwords
	res := f.login(t, "a@x.com", "secret1")
	assert.Equal(t, apperr.ErrUnauthorized, f.svc.ResetPassword(ctx, res.AccessToken, "whatever"))
}
