package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/goitProjects/SBC-backend/handlers"
	"github.com/goitProjects/SBC-backend/internal/auth"
	boardhandler "github.com/goitProjects/SBC-backend/internal/board/handler"
	"github.com/goitProjects/SBC-backend/internal/board/repository"
	boardservice "github.com/goitProjects/SBC-backend/internal/board/service"
	"github.com/goitProjects/SBC-backend/internal/config"
	"github.com/goitProjects/SBC-backend/internal/database"
	"github.com/goitProjects/SBC-backend/internal/mail"
	"github.com/goitProjects/SBC-backend/internal/sessions"
	"github.com/goitProjects/SBC-backend/internal/tokens"
	"github.com/goitProjects/SBC-backend/internal/users"
	"github.com/goitProjects/SBC-backend/pkg/logger"
	"github.com/goitProjects/SBC-backend/pkg/metrics"
	"github.com/goitProjects/SBC-backend/pkg/middleware"
	"github.com/goitProjects/SBC-backend/pkg/validation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

// stores are the backing stores picked by STORAGE_DRIVER and SESSION_STORE.
type stores struct {
	users    users.UserRepository
	sessions sessions.Repository
	board    repository.Repository
}

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: log=%s storage=%s sessions=%s mongo=%v redis=%v mail=%v", logger.LevelString(),
		cfg.Storage.Driver, cfg.Storage.SessionStore, cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Mail.Enabled())

	if err := validation.Register(); err != nil {
		logger.Fatalf("failed to register validators: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", cfg.Redis.Addr(), err)
			if cfg.Storage.SessionStore == "redis" {
				logger.Fatalf("SESSION_STORE=redis but Redis is unreachable")
			}
			rdb = nil
		} else {
			logger.Infof("connected to Redis: %s", cfg.Redis.Addr())
			defer func() { _ = rdb.Close() }()
		}
	}

	var client *mongo.Client
	if cfg.MongoDB.URI != "" {
		client, err = connectMongo(ctx, cfg)
		if err != nil {
			logger.Fatalf("%v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
	}

	st, err := openStores(ctx, cfg, client, rdb)
	if err != nil {
		logger.Fatalf("failed to open stores: %v", err)
	}

	var sender mail.Sender = mail.LogSender{}
	if cfg.Mail.Enabled() {
		sender = mail.NewSMTPSender(cfg.Mail)
	} else {
		logger.Warnf("mail delivery disabled: MAIL_SENDER, MAIL_API_KEY and MAIL_SMTP_HOST are required")
	}
	dispatcher := mail.NewDispatcher(sender)

	userSvc := users.NewService(st.users, cfg.Hash)
	sessionSvc := sessions.NewService(st.sessions)
	authSvc := auth.NewService(userSvc, sessionSvc, tokens.NewIssuer(cfg), st.board, dispatcher, cfg.Mail.Sender)
	boardSvc := boardservice.New(st.board, userSvc)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.AccessLog(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready := true
		deps := map[string]bool{}
		if client != nil {
			deps["mongo"] = client.Ping(pingCtx, nil) == nil
			ready = ready && deps["mongo"]
		}
		if rdb != nil {
			deps["redis"] = rdb.Ping(pingCtx).Err() == nil
			ready = ready && deps["redis"]
		}
		status, state := http.StatusOK, "ready"
		if !ready {
			status, state = http.StatusServiceUnavailable, "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	authorize := middleware.Authorize(authSvc)
	publicGuards, protectedGuards := []gin.HandlerFunc{}, []gin.HandlerFunc{authorize}
	if cfg.RateLimit.Enabled {
		limiter := rateLimiter(cfg, rdb)
		publicGuards = append(publicGuards, limiter)
		protectedGuards = append(protectedGuards, limiter)
	}
	handlers.NewAuthHandler(cfg, authSvc).Register(r.Group("/", publicGuards...), authorize)
	boardhandler.New(boardSvc).Register(&r.RouterGroup, protectedGuards...)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      corsHandler(r),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("starting SBC backend on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http shutdown: %v", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Errorf("mail drain: %v", err)
	}
}

// connectMongo retries with backoff to tolerate startup races.
func connectMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	const maxAttempts = 5
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err == nil {
			logger.Infof("connected to MongoDB database %q", cfg.MongoDB.Database)
			return client, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("could not connect to MongoDB after %d attempts: %w", maxAttempts, lastErr)
}

func openStores(ctx context.Context, cfg *config.Config, client *mongo.Client, rdb *redis.Client) (*stores, error) {
	var db *mongo.Database
	if client != nil {
		db = client.Database(cfg.MongoDB.Database)
	}
	st := &stores{}

	switch cfg.Storage.Driver {
	case "memory":
		logger.Warnf("STORAGE_DRIVER=memory: users and board records are not persisted")
		st.users = users.NewMemoryUserRepository()
		st.board = repository.NewMemoryRepo()
	default:
		if db == nil {
			return nil, errors.New("STORAGE_DRIVER=mongo requires MongoDB")
		}
		ur, err := users.NewMongoUserRepository(ctx, db.Collection("users"))
		if err != nil {
			return nil, err
		}
		br, err := repository.NewMongoRepo(ctx, db)
		if err != nil {
			return nil, err
		}
		st.users, st.board = ur, br
	}

	switch cfg.Storage.SessionStore {
	case "redis":
		st.sessions = sessions.NewRedisRepository(rdb, "session:", cfg.JWT.Refresh.TTL)
	case "memory":
		st.sessions = sessions.NewMemoryRepository(cfg.JWT.Refresh.TTL)
	default:
		if db == nil {
			return nil, errors.New("SESSION_STORE=mongo requires MongoDB")
		}
		sr, err := sessions.NewMongoRepository(ctx, db.Collection("sessions"), cfg.JWT.Refresh.TTL)
		if err != nil {
			return nil, err
		}
		st.sessions = sr
	}
	logger.Infof("stores: records=%s sessions=%s", cfg.Storage.Driver, cfg.Storage.SessionStore)
	return st, nil
}

// rateLimiter prefers the shared Redis window when configured and reachable.
func rateLimiter(cfg *config.Config, rdb *redis.Client) gin.HandlerFunc {
	if cfg.RateLimit.UseRedis && rdb != nil {
		win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		logger.Infof("rate limiter: redis, %.1f rps burst %d per %s", cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
		return middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
	}
	logger.Infof("rate limiter: memory, %.1f rps burst %d", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	return middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}
