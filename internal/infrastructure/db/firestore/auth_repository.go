package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"github.com/pbnkron/kron/internal/core/domain"
)

type credentialDoc struct {
	UID          string    `firestore:"uid"`
	PasswordHash string    `firestore:"passwordHash"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// AuthRepository keys credentials by email so that Create is a uniqueness check.
type AuthRepository struct {
	client *firestore.Client
}

func NewAuthRepository(client *firestore.Client) *AuthRepository {
	return &AuthRepository{client: client}
}

func (r *AuthRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	id := user.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := r.client.Collection(collectionAuth).Doc(user.Email).Create(ctx, credentialDoc{
		UID:          id,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
	if err != nil {
		if isAlreadyExists(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := *user
	created.ID = id
	return &created, nil
}

func (r *AuthRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	snap, err := r.client.Collection(collectionAuth).Doc(email).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	var d credentialDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &domain.User{
		ID:           d.UID,
		Email:        email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}
