package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pbnkron/kron/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

const (
	collectionProfiles = "users"
	collectionGoals    = "goals"
	collectionMirrors  = "public_goals"
	collectionAuth     = "auth_users"
)

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// Open connects, ensures indexes and bundles the repositories.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (ports.Store, error) {
	client, db, err := Connect(ctx, cfg)
	if err != nil {
		return ports.Store{}, err
	}

	goals := NewGoalRepository(db)
	mirrors := NewMirrorRepository(client, db, logger)
	profiles := NewProfileRepository(db)
	auth := NewAuthRepository(db)

	for _, ix := range []interface{ EnsureIndexes(context.Context) error }{goals, mirrors, auth} {
		if err := ix.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return ports.Store{}, fmt.Errorf("mongo indexes: %w", err)
		}
	}

	logger.Info().Str("database", cfg.Database).Msg("mongo store ready")

	return ports.Store{
		Goals:    goals,
		Mirrors:  mirrors,
		Profiles: profiles,
		Feed:     mirrors,
		Auth:     auth,
		Ping: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
			defer cancel()
			return client.Ping(ctx, readpref.Primary())
		},
		Close: client.Disconnect,
	}, nil
}

// literal keeps user text from being read as a field path inside an
// aggregation-pipeline update.
func literal(v any) bson.D {
	return bson.D{{Key: "$literal", Value: v}}
}

// keepOrNow resolves to the stored value of field, or the server clock when
// the field is missing.
func keepOrNow(field string) bson.D {
	return bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, "$$NOW"}}}
}
