package ports

import (
	"context"

	"github.com/pbnkron/kron/internal/core/domain"
)

// GoalRepository persists private goals under their owner's collection.
// Implementations stamp createdAt/updatedAt with the store's own clock.
type GoalRepository interface {
	// Create writes g under ownerUID and returns it with the stored timestamps.
	Create(ctx context.Context, g *domain.Goal) (*domain.Goal, error)
	Get(ctx context.Context, ownerUID, goalID string) (*domain.Goal, error)
	// Update applies the sparse patch and stamps updatedAt.
	Update(ctx context.Context, ownerUID, goalID string, patch domain.GoalPatch) error
	Delete(ctx context.Context, ownerUID, goalID string) error
	// List returns the owner's goals, newest first.
	List(ctx context.Context, ownerUID string, filter domain.GoalFilter) ([]*domain.Goal, error)
}

// MirrorRepository persists the public feed copies keyed by goal id.
type MirrorRepository interface {
	// Upsert merges m into the mirror with the same id. A zero CreatedAt is
	// stamped by the store only when the mirror has none yet.
	Upsert(ctx context.Context, m *domain.Mirror) error
	// Delete removes the mirror. Deleting a missing mirror is not an error.
	Delete(ctx context.Context, goalID string) error
	Get(ctx context.Context, goalID string) (*domain.Mirror, error)
	ListByAuthor(ctx context.Context, authorUID string) ([]*domain.Mirror, error)
	// RenameAuthor sets authorName on the given mirrors in one all-or-nothing batch.
	// Mirrors that no longer belong to authorUID are skipped.
	RenameAuthor(ctx context.Context, authorUID, authorName string, goalIDs []string) error
	// List returns the public feed, newest first.
	List(ctx context.Context, filter domain.GoalFilter) ([]*domain.Mirror, error)
}

// FeedWatcher streams live result sets of the public feed. The returned channel
// is closed when ctx is done or the underlying stream fails.
type FeedWatcher interface {
	Watch(ctx context.Context, filter domain.GoalFilter) (<-chan []*domain.Mirror, error)
}

// ProfileRepository persists user profiles.
type ProfileRepository interface {
	Get(ctx context.Context, uid string) (*domain.Profile, error)
	// Ensure merge-creates the profile; an existing username is kept.
	Ensure(ctx context.Context, p *domain.Profile) (*domain.Profile, error)
	SetUsername(ctx context.Context, uid, username string) error
	// ListUIDs returns every profile uid; used by the reconciliation sweep.
	ListUIDs(ctx context.Context) ([]string, error)
}

// AuthRepository persists credentials for the local identity provider.
type AuthRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}

// Store bundles one backend's repositories.
type Store struct {
	Goals    GoalRepository
	Mirrors  MirrorRepository
	Profiles ProfileRepository
	Feed     FeedWatcher
	Auth     AuthRepository
	// Ping reports backend reachability for readiness probes.
	Ping func(ctx context.Context) error
	// Close releases the backend connection.
	Close func(ctx context.Context) error
}
