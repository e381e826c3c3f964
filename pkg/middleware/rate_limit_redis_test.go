package middleware

import (
	"net/http"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimitMiddleware_Basic(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	r := gin.New()
	// 1 req/window, no burst
	r.Use(RedisRateLimitMiddleware(client, 1, 0, time.Hour))
	r.GET("/r", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, hit(r, "/r", "10.0.0.1:1", ""))
	require.Equal(t, http.StatusTooManyRequests, hit(r, "/r", "10.0.0.1:1", ""))
	require.Equal(t, http.StatusOK, hit(r, "/r", "10.0.0.9:1", ""))

	keys := m.Keys()
	require.Len(t, keys, 2)
	require.Contains(t, keys[0], "rl:ip:10.0.0.")
	require.Greater(t, m.TTL(keys[0]), time.Duration(0))
}

func TestRedisRateLimitMiddleware_UserKey(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	auth := newFakeAuthenticator()

	r := gin.New()
	r.GET("/u", Authorize(auth), RedisRateLimitMiddleware(client, 1, 0, time.Hour), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, hit(r, "/u", "", "good"))
	keys := m.Keys()
	require.Len(t, keys, 1)
	require.Contains(t, keys[0], "rl:uid:"+auth.user.ID.Hex())
}

func TestRedisRateLimitMiddleware_RedisDown(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	m.Close()

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 1, 0, time.Second))
	r.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusInternalServerError, hit(r, "/r", "", ""))
}

func TestRedisRateLimitMiddleware_NilClientFallsBack(t *testing.T) {
	r := gin.New()
	r.Use(RedisRateLimitMiddleware(nil, 0.5, 1, time.Second))
	r.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, hit(r, "/r", "", ""))
	require.Equal(t, http.StatusTooManyRequests, hit(r, "/r", "", ""))
}
