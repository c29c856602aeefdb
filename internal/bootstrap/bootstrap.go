// Package bootstrap turns a Config into the backends both binaries share.
package bootstrap

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pbnkron/kron/internal/core/ports"
	"github.com/pbnkron/kron/internal/core/service"
	"github.com/pbnkron/kron/internal/infrastructure/config"
	"github.com/pbnkron/kron/internal/infrastructure/db/firestore"
	"github.com/pbnkron/kron/internal/infrastructure/db/memory"
	"github.com/pbnkron/kron/internal/infrastructure/db/mongo"
	"github.com/pbnkron/kron/internal/infrastructure/db/redis"
	"github.com/pbnkron/kron/internal/infrastructure/http/handlers"
	"github.com/pbnkron/kron/internal/infrastructure/identity"
)

// Backends is everything opened from the configuration. Close releases it.
type Backends struct {
	Store    ports.Store
	Identity ports.IdentityProvider
	// Auth is nil unless the local identity provider is selected.
	Auth  ports.AuthService
	Guard ports.CreateGuard
	// Redis is nil when the create guard runs in process.
	Redis *goredis.Client

	firebase *firebase.App
}

// Open connects the store, the identity provider and the create guard
// selected by cfg.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Backends, error) {
	b := &Backends{}

	if needsFirebase(cfg) {
		app, err := firestore.NewApp(ctx, firestore.Config{
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsFile: cfg.Firebase.CredentialsFile,
		})
		if err != nil {
			return nil, err
		}
		b.firebase = app
	}

	store, err := openStore(ctx, cfg, b.firebase, log)
	if err != nil {
		return nil, err
	}
	b.Store = store

	switch cfg.IdentityProvider {
	case config.IdentityFirebase:
		provider, err := identity.NewFirebaseProvider(ctx, b.firebase)
		if err != nil {
			b.closeStore(ctx, log)
			return nil, err
		}
		b.Identity = provider
	default:
		jwt := identity.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		b.Identity = jwt
		b.Auth = service.NewAuthService(store.Auth, store.Profiles, jwt)
	}

	if cfg.Redis.Addr == "" {
		b.Guard = service.NewLocalCreateGuard()
		return b, nil
	}

	client, err := redis.Connect(ctx, redis.Config{
		Addr:       cfg.Redis.Addr,
		DB:         cfg.Redis.DB,
		ClientName: "kron",
	})
	if err != nil {
		b.closeStore(ctx, log)
		return nil, err
	}
	b.Redis = client
	b.Guard = redis.NewCreateGuard(client, cfg.Redis.GuardTTL, log)

	log.Info().Str("addr", cfg.Redis.Addr).Msg("create guard backed by redis")
	return b, nil
}

// Checks returns the readiness probes for the opened backends.
func (b *Backends) Checks() map[string]handlers.Check {
	checks := map[string]handlers.Check{"store": b.Store.Ping}
	if b.Redis != nil {
		checks["redis"] = redis.Pinger(b.Redis)
	}
	return checks
}

// Close releases every connection, logging failures.
func (b *Backends) Close(ctx context.Context, log zerolog.Logger) {
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
	}
	b.closeStore(ctx, log)
}

func (b *Backends) closeStore(ctx context.Context, log zerolog.Logger) {
	if b.Store.Close == nil {
		return
	}
	if err := b.Store.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("store close")
	}
}

func needsFirebase(cfg *config.Config) bool {
	return cfg.StoreBackend == config.BackendFirestore || cfg.IdentityProvider == config.IdentityFirebase
}

func openStore(ctx context.Context, cfg *config.Config, app *firebase.App, log zerolog.Logger) (ports.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn().Msg("using the in-memory store; data is lost on restart")
		return memory.New().Ports(), nil
	case config.BackendMongo:
		return mongo.Open(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database}, log)
	case config.BackendFirestore:
		return firestore.Open(ctx, app, log)
	default:
		return ports.Store{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
