package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goitProjects/SBC-backend/internal/board/repository"
	"github.com/goitProjects/SBC-backend/internal/board/service"
	"github.com/goitProjects/SBC-backend/internal/config"
	"github.com/goitProjects/SBC-backend/internal/models"
	"github.com/goitProjects/SBC-backend/internal/sessions"
	"github.com/goitProjects/SBC-backend/internal/users"
	"github.com/goitProjects/SBC-backend/pkg/apperr"
	"github.com/goitProjects/SBC-backend/pkg/middleware"
	"github.com/goitProjects/SBC-backend/pkg/validation"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := validation.Register(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// emailAuth treats the bearer token as the user's e-mail.
type emailAuth struct{ users *users.Service }

func (a emailAuth) Authenticate(ctx context.Context, token string) (*models.User, *sessions.Session, error) {
	u, err := a.users.FindByEmail(ctx, token)
	if err != nil || u == nil {
		return nil, nil, apperr.ErrUnauthorized
	}
	return u, &sessions.Session{ID: primitive.NewObjectID(), UserID: u.ID}, nil
}

type client struct {
	t      *testing.T
	engine *gin.Engine
}

func newClient(t *testing.T, emails ...string) *client {
	t.Helper()
	us := users.NewService(users.NewMemoryUserRepository(), config.HashConfig{Cost: bcrypt.MinCost, Concurrency: 1})
	for _, e := range emails {
		_, err := us.Register(context.Background(), e, "pw123456")
		require.NoError(t, err)
	}
	g := gin.New()
	New(service.New(repository.NewMemoryRepo(), us)).Register(&g.RouterGroup, middleware.Authorize(emailAuth{users: us}))
	return &client{t: t, engine: g}
}

func (c *client) do(method, path, as string, body interface{}) (int, map[string]interface{}, []byte) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+as)
	}
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)
	var obj map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &obj)
	return w.Code, obj, w.Body.Bytes()
}

const owner = "owner@x.com"

func TestProjectRoutes(t *testing.T) {
	c := newClient(t, owner, "mate@x.com")

	code, _, _ := c.do(http.MethodGet, "/project", "", nil)
	require.Equal(t, http.StatusBadRequest, code)

	code, body, _ := c.do(http.MethodGet, "/project", owner, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "No projects found", body["message"])

	code, body, _ = c.do(http.MethodPost, "/project", owner, gin.H{"title": "x", "description": "desc"})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, `"title" length must be at least 2 characters long`, body["message"])

	code, body, _ = c.do(http.MethodPost, "/project", owner, gin.H{"title": "Board", "description": "desc"})
	require.Equal(t, http.StatusCreated, code)
	pid := body["id"].(string)
	require.Equal(t, []interface{}{owner}, body["members"])

	code, _, raw := c.do(http.MethodGet, "/project", owner, nil)
	require.Equal(t, http.StatusOK, code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	require.Equal(t, pid, list[0]["_id"])

	code, body, _ = c.do(http.MethodPatch, "/project/contributor/"+pid, owner, gin.H{"email": "mate@x.com"})
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["newMembers"], 2)

	code, body, _ = c.do(http.MethodPatch, "/project/contributor/"+pid, owner, gin.H{"email": "mate@x.com"})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "This user is already a contributor", body["message"])

	code, body, _ = c.do(http.MethodPatch, "/project/title/"+pid, owner, gin.H{"title": "Renamed"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Renamed", body["newTitle"])

	code, body, _ = c.do(http.MethodPatch, "/project/title/not-an-id", owner, gin.H{"title": "Renamed"})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Invalid 'projectId'. Must be a MongoDB ObjectId", body["message"])

	code, body, _ = c.do(http.MethodDelete, "/project/"+primitive.NewObjectID().Hex(), owner, nil)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "Project not found", body["message"])

	code, _, _ = c.do(http.MethodDelete, "/project/"+pid, owner, nil)
	require.Equal(t, http.StatusNoContent, code)
}

func TestSprintAndTaskRoutes(t *testing.T) {
	c := newClient(t, owner, "out@x.com")
	_, body, _ := c.do(http.MethodPost, "/project", owner, gin.H{"title": "Board", "description": "desc"})
	pid := body["id"].(string)

	code, body, _ := c.do(http.MethodPost, "/sprint/"+pid, owner, gin.H{"title": "S1", "endDate": "2024/03/05", "duration": 3})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Invalid 'endDate'. Please, use YYYY-MM-DD string format", body["message"])

	code, body, _ = c.do(http.MethodGet, "/sprint/"+pid, owner, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "No sprints found", body["message"])

	code, body, _ = c.do(http.MethodPost, "/sprint/"+pid, owner, gin.H{"title": "S1", "endDate": "2024-03-05", "duration": 3})
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "2024-03-03", body["startDate"])
	sid := body["id"].(string)

	code, body, _ = c.do(http.MethodGet, "/sprint/"+pid, "out@x.com", nil)
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "You are not a contributor of this project", body["message"])

	code, body, _ = c.do(http.MethodGet, "/sprint/"+pid, owner, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["sprints"], 1)

	code, body, _ = c.do(http.MethodPatch, "/sprint/title/"+sid, owner, gin.H{"title": "Sprint one"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Sprint one", body["newTitle"])

	code, body, _ = c.do(http.MethodGet, "/task/"+sid, owner, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "No tasks found", body["message"])

	code, body, _ = c.do(http.MethodPost, "/task/"+sid, owner, gin.H{"title": "Login", "hoursPlanned": 9})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, `"hoursPlanned" must be less than or equal to 8`, body["message"])

	code, body, _ = c.do(http.MethodPost, "/task/"+sid, owner, gin.H{"title": "Login", "hoursPlanned": 4})
	require.Equal(t, http.StatusCreated, code)
	require.Len(t, body["hoursWastedPerDay"], 3)
	tid := body["id"].(string)

	code, _, raw := c.do(http.MethodGet, "/task/"+sid+"?search=log", owner, nil)
	require.Equal(t, http.StatusOK, code)
	var tasks []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &tasks))
	require.Len(t, tasks, 1)

	code, body, _ = c.do(http.MethodGet, "/task/"+sid+"?search=zz", owner, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "No tasks found", body["message"])

	code, body, _ = c.do(http.MethodPatch, "/task/"+tid, owner, gin.H{"date": "2024-03-04"})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, `"hours" is required`, body["message"])

	code, body, _ = c.do(http.MethodPatch, "/task/"+tid, owner, gin.H{"date": "2024-03-04", "hours": 0})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "You can't set the same hours", body["message"])

	code, body, _ = c.do(http.MethodPatch, "/task/"+tid, owner, gin.H{"date": "2024-03-04", "hours": 2.5})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 2.5, body["newWastedHours"])

	code, body, _ = c.do(http.MethodPatch, "/task/"+tid, owner, gin.H{"date": "2024-04-04", "hours": 1})
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "Day not found", body["message"])

	code, body, _ = c.do(http.MethodPatch, "/task/changeStatus/"+tid, owner, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["status"].(map[string]interface{})["isDone"])

	code, _, _ = c.do(http.MethodDelete, "/task/"+tid, "out@x.com", nil)
	require.Equal(t, http.StatusNotFound, code)
	code, _, _ = c.do(http.MethodDelete, "/task/"+tid, owner, nil)
	require.Equal(t, http.StatusNoContent, code)

	code, _, _ = c.do(http.MethodDelete, "/sprint/"+sid, owner, nil)
	require.Equal(t, http.StatusNoContent, code)
	code, _, _ = c.do(http.MethodDelete, "/sprint/"+sid, owner, nil)
	require.Equal(t, http.StatusNotFound, code)
}
