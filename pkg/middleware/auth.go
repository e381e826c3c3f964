package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goitProjects/SBC-backend/internal/models"
	"github.com/goitProjects/SBC-backend/internal/sessions"
	"github.com/goitProjects/SBC-backend/pkg/apperr"
	"github.com/goitProjects/SBC-backend/pkg/validation"
)

const (
	userKey    = "auth.user"
	sessionKey = "auth.session"
)

// Authenticator resolves an access token to its live user and session.
// Errors are *apperr.Error values carrying the rejection status.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, *sessions.Session, error)
}

// BearerToken returns the Authorization header with the "Bearer " prefix
// removed, and false when the header is absent.
func BearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if h == "" {
		return "", false
	}
	return strings.TrimPrefix(h, "Bearer "), true
}

// Abort stops the chain with the error's status and {"message": ...} body.
func Abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.StatusOf(err), gin.H{"message": apperr.MessageOf(err)})
}

// Authorize gates a route on a valid access token whose user and session
// both still exist:
//
//	no header            400 No token provided
//	bad token            401 Unauthorized
//	unknown user         404 Invalid user
//	unknown session      404 Invalid session
func Authorize(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := BearerToken(c)
		if !ok {
			Abort(c, apperr.ErrNoToken)
			return
		}
		user, sess, err := auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			Abort(c, err)
			return
		}
		c.Set(userKey, user)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// CurrentUser returns the user attached by Authorize.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// CurrentSession returns the session attached by Authorize.
func CurrentSession(c *gin.Context) *sessions.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*sessions.Session); ok {
			return s
		}
	}
	return nil
}

// rateKey prefers the authenticated user so clients behind one NAT do not
// share a bucket.
func rateKey(c *gin.Context) string {
	if u := CurrentUser(c); u != nil {
		return "uid:" + u.ID.Hex()
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// AbortInvalid rejects a request whose body, path or query failed binding.
func AbortInvalid(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": validation.Message(err)})
}
