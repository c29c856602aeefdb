package identity

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"

	"github.com/pbnkron/kron/internal/core/domain"
)

// idTokenVerifier is the slice of *auth.Client used here.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseProvider verifies Firebase Authentication ID tokens minted by the
// client SDKs. Registration and login happen on the client.
type FirebaseProvider struct {
	client idTokenVerifier
}

func NewFirebaseProvider(ctx context.Context, app *firebase.App) (*FirebaseProvider, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &FirebaseProvider{client: client}, nil
}

func (p *FirebaseProvider) Verify(ctx context.Context, raw string) (*domain.Identity, error) {
	tok, err := p.client.VerifyIDToken(ctx, raw)
	if err != nil {
		return nil, errors.Join(domain.ErrUnauthenticated, err)
	}
	email, _ := tok.Claims["email"].(string)
	return &domain.Identity{UID: tok.UID, Email: email}, nil
}
