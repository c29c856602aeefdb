package ports

import (
	"context"

	"github.com/pbnkron/kron/internal/core/domain"
)

// IdentityProvider turns a bearer token into the caller's identity.
type IdentityProvider interface {
	Verify(ctx context.Context, token string) (*domain.Identity, error)
}
