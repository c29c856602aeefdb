package ports

import (
	"context"

	"github.com/pbnkron/kron/internal/core/domain"
)

// ProfileService manages display names and fans renames out to mirrors.
type ProfileService interface {
	EnsureProfile(ctx context.Context, id domain.Identity) (*domain.Profile, error)
	Get(ctx context.Context, uid string) (*domain.Profile, error)
	// Rename updates the username and every mirror authored by uid. A blank
	// name is a silent no-op and reports renamed=false.
	Rename(ctx context.Context, uid, newName string) (renamed bool, err error)
}

// AuthService is the local identity provider's account surface.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}
