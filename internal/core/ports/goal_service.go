package ports

import (
	"context"

	"github.com/pbnkron/kron/internal/core/domain"
)

// Author identifies who a create is performed for.
type Author struct {
	UID string
	// DisplayName is stamped on the mirror. Empty falls back to the profile
	// username, then the email local part, then "Anonymous".
	DisplayName string
	Email       string
}

// GoalSyncService keeps every private goal and its optional public mirror consistent.
type GoalSyncService interface {
	Create(ctx context.Context, author Author, in domain.NewGoalInput) (*domain.Goal, error)
	// Update applies patch to the private record and then upserts or deletes the
	// mirror. A nil current snapshot is read from the store first.
	Update(ctx context.Context, ownerUID, goalID string, patch domain.GoalPatch, current *domain.Goal) error
	Delete(ctx context.Context, ownerUID, goalID string, wasPublic bool) error
	Get(ctx context.Context, ownerUID, goalID string) (*domain.Goal, error)
	ListMine(ctx context.Context, ownerUID string, filter domain.GoalFilter) ([]*domain.Goal, error)
}

// FeedService reads the shared public feed.
type FeedService interface {
	List(ctx context.Context, filter domain.GoalFilter) ([]*domain.Mirror, error)
	Watch(ctx context.Context, filter domain.GoalFilter) (<-chan []*domain.Mirror, error)
}

// ReconcilePlan lists the mirror writes that bring an owner back to the
// "mirror exists iff goal is public" state.
type ReconcilePlan struct {
	Upsert []domain.Mirror
	Delete []string
}

// Empty reports whether nothing needs repair.
func (p ReconcilePlan) Empty() bool {
	return len(p.Upsert) == 0 && len(p.Delete) == 0
}

// ReconcileService repairs missing, orphaned and stale mirrors.
type ReconcileService interface {
	Reconcile(ctx context.Context, ownerUID string) (ReconcilePlan, error)
}
