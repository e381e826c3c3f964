package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Hash      HashConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	Environment    string
	PublicURL      string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// TokenPolicy is the secret and lifetime of one token kind.
type TokenPolicy struct {
	Secret string
	TTL    time.Duration
}

// JWTConfig carries one independent policy per token kind so that a token
// signed for one purpose never verifies for another.
type JWTConfig struct {
	Access  TokenPolicy
	Refresh TokenPolicy
	Reset   TokenPolicy
}

type HashConfig struct {
	Cost        int
	Concurrency int
}

type MailConfig struct {
	Sender   string
	APIKey   string
	SMTPHost string
	SMTPPort int
	SMTPUser string
}

// Enabled reports whether outbound mail can be delivered.
func (m MailConfig) Enabled() bool {
	return m.Sender != "" && m.APIKey != "" && m.SMTPHost != ""
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

// StorageConfig selects the backing stores: "mongo" or "memory" for records
// and users, "mongo", "redis" or "memory" for sessions.
type StorageConfig struct {
	Driver       string
	SessionStore string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "3000")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("ALLOWED_ORIGIN", "*")
	viper.SetDefault("MONGODB_DATABASE", "sbc")
	viper.SetDefault("MONGODB_TIMEOUT", "10s")
	viper.SetDefault("JWT_ACCESS_EXPIRE_TIME", "1h")
	viper.SetDefault("JWT_REFRESH_EXPIRE_TIME", "720h")
	viper.SetDefault("JWT_RESET_EXPIRE_TIME", "15m")
	viper.SetDefault("HASH_POWER", 10)
	viper.SetDefault("HASH_CONCURRENCY", runtime.NumCPU())
	viper.SetDefault("MAIL_SMTP_HOST", "smtp.sendgrid.net")
	viper.SetDefault("MAIL_SMTP_PORT", 587)
	viper.SetDefault("MAIL_SMTP_USER", "apikey")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("RATE_LIMIT_RPS", 10)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	viper.SetDefault("STORAGE_DRIVER", "mongo")
	viper.SetDefault("SESSION_STORE", "mongo")

	cfg := &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Host:           viper.GetString("SERVER_HOST"),
			Environment:    viper.GetString("SERVER_ENVIRONMENT"),
			PublicURL:      strings.TrimRight(viper.GetString("PUBLIC_URL"), "/"),
			AllowedOrigins: splitList(viper.GetString("ALLOWED_ORIGIN")),
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  viper.GetDuration("MONGODB_TIMEOUT"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Access: TokenPolicy{
				Secret: viper.GetString("JWT_ACCESS_SECRET"),
				TTL:    viper.GetDuration("JWT_ACCESS_EXPIRE_TIME"),
			},
			Refresh: TokenPolicy{
				Secret: viper.GetString("JWT_REFRESH_SECRET"),
				TTL:    viper.GetDuration("JWT_REFRESH_EXPIRE_TIME"),
			},
			Reset: TokenPolicy{
				Secret: viper.GetString("JWT_RESET_SECRET"),
				TTL:    viper.GetDuration("JWT_RESET_EXPIRE_TIME"),
			},
		},
		Hash: HashConfig{
			Cost:        viper.GetInt("HASH_POWER"),
			Concurrency: viper.GetInt("HASH_CONCURRENCY"),
		},
		Mail: MailConfig{
			Sender:   viper.GetString("MAIL_SENDER"),
			APIKey:   viper.GetString("MAIL_API_KEY"),
			SMTPHost: viper.GetString("MAIL_SMTP_HOST"),
			SMTPPort: viper.GetInt("MAIL_SMTP_PORT"),
			SMTPUser: viper.GetString("MAIL_SMTP_USER"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Storage: StorageConfig{
			Driver:       strings.ToLower(viper.GetString("STORAGE_DRIVER")),
			SessionStore: strings.ToLower(viper.GetString("SESSION_STORE")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	var errs []error
	secrets := map[string]string{
		"JWT_ACCESS_SECRET":  c.JWT.Access.Secret,
		"JWT_REFRESH_SECRET": c.JWT.Refresh.Secret,
		"JWT_RESET_SECRET":   c.JWT.Reset.Secret,
	}
	seen := map[string]string{}
	for _, key := range []string{"JWT_ACCESS_SECRET", "JWT_REFRESH_SECRET", "JWT_RESET_SECRET"} {
		v := secrets[key]
		if v == "" {
			errs = append(errs, fmt.Errorf("environment variable %s is required", key))
			continue
		}
		if other, ok := seen[v]; ok {
			errs = append(errs, fmt.Errorf("%s must differ from %s", key, other))
		}
		seen[v] = key
	}
	for name, p := range map[string]TokenPolicy{"access": c.JWT.Access, "refresh": c.JWT.Refresh, "reset": c.JWT.Reset} {
		if p.TTL <= 0 {
			errs = append(errs, fmt.Errorf("%s token expire time must be positive", name))
		}
	}
	if c.Storage.Driver != "memory" && c.MongoDB.URI == "" {
		errs = append(errs, errors.New("environment variable MONGODB_URI is required"))
	}
	switch c.Storage.SessionStore {
	case "mongo", "memory":
	case "redis":
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("SESSION_STORE=redis requires REDIS_HOST"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q", c.Storage.SessionStore))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
