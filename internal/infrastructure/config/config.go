package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	BackendMemory    = "memory"
	BackendMongo     = "mongo"
	BackendFirestore = "firestore"

	IdentityLocal    = "local"
	IdentityFirebase = "firebase"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	StoreBackend     string `env:"STORE_BACKEND,     default=memory"`
	IdentityProvider string `env:"IDENTITY_PROVIDER, default=local"`

	Auth      AuthConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Firebase  FirebaseConfig
	RateLimit RateLimitConfig
	Reconcile ReconcileConfig
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=kron"`
}

type RedisConfig struct {
	// Addr empty keeps the create guard in process.
	Addr     string        `env:"REDIS_ADDR"`
	DB       int           `env:"REDIS_DB,         default=0"`
	GuardTTL time.Duration `env:"CREATE_GUARD_TTL, default=10s"`
}

type FirebaseConfig struct {
	ProjectID       string `env:"FIREBASE_PROJECT_ID"`
	CredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
}

type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS,   default=5"`
	Burst int     `env:"RATE_LIMIT_BURST, default=10"`
}

type ReconcileConfig struct {
	Workers int `env:"RECONCILE_WORKERS, default=4"`

	// Interval zero disables the periodic sweep.
	Interval time.Duration `env:"RECONCILE_INTERVAL, default=0s"`
}

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks the cross-field rules envconfig cannot express.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendMongo, BackendFirestore:
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.IdentityProvider {
	case IdentityLocal:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("config: JWT_SECRET is required for the local identity provider")
		}
	case IdentityFirebase:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("config: FIREBASE_PROJECT_ID is required for the firebase identity provider")
		}
	default:
		return fmt.Errorf("config: unknown IDENTITY_PROVIDER %q", c.IdentityProvider)
	}

	if c.StoreBackend == BackendFirestore && c.Firebase.ProjectID == "" {
		return fmt.Errorf("config: FIREBASE_PROJECT_ID is required for the firestore backend")
	}
	if c.Reconcile.Workers < 1 {
		return fmt.Errorf("config: RECONCILE_WORKERS must be at least 1")
	}
	return nil
}

// Load reads configuration from the environment using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
