package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DevSecretFallback signs tokens when JWT_SECRET is unset outside production.
// Running with it is a deployment misconfiguration.
const DevSecretFallback = "dev_secret"

// DefaultTokenTTL is the session token lifetime when JWT_EXPIRES_IN is unset.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Store drivers understood by the API.
const (
	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
)

// ErrMissingSecret is returned when production runs without a signing secret.
var ErrMissingSecret = errors.New("config: JWT_SECRET must be set in production")

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment   string
	Addr          string
	LogLevel      string
	JWTSecret     string
	SecretDefault bool
	TokenTTL      time.Duration
	StoreDriver   string
	UsersFile     string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BcryptCost    int
	CookieSecure  bool
	CORSOrigins   []string
	TMDBBaseURL   string
	TMDBToken     string
	TMDBCacheDir  string
}

// Production reports whether the service runs in a production environment.
func (c APIConfig) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// LoadAPIConfig constructs an APIConfig from environment variables, layered
// over the YAML file named by MOVIEGATE_CONFIG when present.
func LoadAPIConfig() (APIConfig, error) {
	overlay, err := readOverlay(GetString("MOVIEGATE_CONFIG", ""))
	if err != nil {
		return APIConfig{}, err
	}
	src := layered{file: overlay}

	cfg := APIConfig{
		Environment:   src.String("APP_ENV", "development"),
		Addr:          src.String("API_ADDR", ":3000"),
		LogLevel:      src.String("LOG_LEVEL", "info"),
		JWTSecret:     strings.TrimSpace(src.String("JWT_SECRET", "")),
		StoreDriver:   strings.ToLower(strings.TrimSpace(src.String("STORE_DRIVER", StoreDriverFile))),
		UsersFile:     src.String("USERS_FILE", "data/users.json"),
		DatabaseURL:   src.String("DATABASE_URL", "postgres://moviegate:moviegate@db:5432/moviegate?sslmode=disable"),
		RedisAddr:     src.String("REDIS_ADDR", "localhost:6379"),
		RedisPassword: src.String("REDIS_PASSWORD", ""),
		RedisDB:       src.Int("REDIS_DB", 0),
		BcryptCost:    src.Int("BCRYPT_COST", 10),
		CORSOrigins:   src.List("CORS_ORIGINS", nil),
		TMDBBaseURL:   src.String("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBToken:     src.String("TMDB_TOKEN", ""),
		TMDBCacheDir:  src.String("TMDB_CACHE_DIR", ""),
	}
	cfg.CookieSecure = src.Bool("COOKIE_SECURE", cfg.Production())

	ttl, err := ParseTTL(src.String("JWT_EXPIRES_IN", "7d"))
	if err != nil {
		return APIConfig{}, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	cfg.TokenTTL = ttl

	if cfg.JWTSecret == "" {
		if cfg.Production() {
			return APIConfig{}, ErrMissingSecret
		}
		cfg.JWTSecret = DevSecretFallback
		cfg.SecretDefault = true
	}

	switch cfg.StoreDriver {
	case StoreDriverFile, StoreDriverPostgres, StoreDriverRedis:
	default:
		return APIConfig{}, fmt.Errorf("config: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return cfg, nil
}
