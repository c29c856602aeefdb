// Package firestore stores goals, mirrors and profiles in Cloud Firestore
// using the original document layout:
//
//	users/{uid}                 profile
//	users/{uid}/goals/{goalId}  private goal
//	public_goals/{goalId}       public mirror
//	auth_users/{email}          local-provider credentials
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pbnkron/kron/internal/core/ports"
)

const (
	collectionUsers   = "users"
	collectionGoals   = "goals"
	collectionMirrors = "public_goals"
	collectionAuth    = "auth_users"
)

// Config selects the Firebase project.
type Config struct {
	ProjectID string
	// CredentialsFile is a service-account JSON. Empty uses application
	// default credentials.
	CredentialsFile string
}

// NewApp initialises the Firebase app shared by the store and the ID-token verifier.
func NewApp(ctx context.Context, cfg Config) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	return app, nil
}

// Open builds the repositories on the app's Firestore client.
func Open(ctx context.Context, app *firebase.App, logger zerolog.Logger) (ports.Store, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return ports.Store{}, fmt.Errorf("firestore client: %w", err)
	}

	mirrors := NewMirrorRepository(client, logger)
	logger.Info().Msg("firestore store ready")

	return ports.Store{
		Goals:    NewGoalRepository(client),
		Mirrors:  mirrors,
		Profiles: NewProfileRepository(client),
		Feed:     mirrors,
		Auth:     NewAuthRepository(client),
		Ping: func(ctx context.Context) error {
			_, err := client.Collection(collectionMirrors).Limit(1).Documents(ctx).Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			return err
		},
		Close: func(context.Context) error { return client.Close() },
	}, nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

func userDoc(c *firestore.Client, uid string) *firestore.DocumentRef {
	return c.Collection(collectionUsers).Doc(uid)
}

func goalsOf(c *firestore.Client, uid string) *firestore.CollectionRef {
	return userDoc(c, uid).Collection(collectionGoals)
}
