package ports

import "context"

// CreateGuard allows at most one outstanding goal create per owner.
type CreateGuard interface {
	// Acquire returns domain.ErrCreateInFlight when a create for ownerUID is
	// already pending. The returned release func must be called on every exit path.
	Acquire(ctx context.Context, ownerUID string) (release func(), err error)
}

// IDGenerator issues fresh goal identifiers.
type IDGenerator func() string
