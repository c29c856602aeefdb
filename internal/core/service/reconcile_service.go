package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pbnkron/kron/internal/api/metrics"
	"github.com/pbnkron/kron/internal/core/domain"
	"github.com/pbnkron/kron/internal/core/ports"
)

// ReconcileService repairs the mirrors of one owner: public goals with a
// missing or stale mirror are re-projected, and mirrors whose goal is gone or
// private are deleted. It is idempotent and keyed by goal id, so running it
// twice is harmless.
type ReconcileService struct {
	goals    ports.GoalRepository
	mirrors  ports.MirrorRepository
	profiles ports.ProfileRepository
	logger   zerolog.Logger
}

func NewReconcileService(
	goals ports.GoalRepository,
	mirrors ports.MirrorRepository,
	profiles ports.ProfileRepository,
	logger zerolog.Logger,
) *ReconcileService {
	return &ReconcileService{goals: goals, mirrors: mirrors, profiles: profiles, logger: logger}
}

// Reconcile loads the owner's goals and mirrors, plans the repair and applies
// it in order. Every planned write re-reads its goal first, so a create,
// update or delete that lands after the listing is never undone: an upsert is
// skipped when the goal is now gone or private, a delete when the goal is now
// public. The first failing write aborts the run. The returned plan lists the
// writes attempted, the failing one included.
func (s *ReconcileService) Reconcile(ctx context.Context, ownerUID string) (ports.ReconcilePlan, error) {
	goals, err := s.goals.List(ctx, ownerUID, domain.GoalFilter{})
	if err != nil {
		return ports.ReconcilePlan{}, fmt.Errorf("reconcile: list goals: %w", err)
	}

	mirrors, err := s.mirrors.ListByAuthor(ctx, ownerUID)
	if err != nil {
		return ports.ReconcilePlan{}, fmt.Errorf("reconcile: list mirrors: %w", err)
	}

	profile, err := s.profiles.Get(ctx, ownerUID)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return ports.ReconcilePlan{}, fmt.Errorf("reconcile: get profile: %w", err)
	}
	authorName := domain.AuthorName(profile, "")

	plan, err := PlanReconcile(ctx, goals, mirrors, authorName)
	if err != nil {
		return ports.ReconcilePlan{}, err
	}

	if plan.Empty() {
		s.logger.Debug().Str("owner_uid", ownerUID).Msg("mirrors already in sync")
		return plan, nil
	}

	var applied ports.ReconcilePlan

	for _, planned := range plan.Upsert {
		g, err := s.currentGoal(ctx, ownerUID, planned.ID)
		if err != nil {
			return applied, err
		}
		if g == nil || !g.Public {
			s.logger.Debug().Str("owner_uid", ownerUID).Str("goal_id", planned.ID).Msg("goal changed since listing, upsert skipped")
			continue
		}
		m := domain.MirrorOf(*g, authorName)
		applied.Upsert = append(applied.Upsert, m)
		if err := s.mirrors.Upsert(ctx, &m); err != nil {
			return applied, fmt.Errorf("reconcile: upsert %s: %w", m.ID, err)
		}
		metrics.ReconcileActionsTotal.WithLabelValues("upsert").Inc()
	}

	for _, id := range plan.Delete {
		g, err := s.currentGoal(ctx, ownerUID, id)
		if err != nil {
			return applied, err
		}
		if g != nil && g.Public {
			s.logger.Debug().Str("owner_uid", ownerUID).Str("goal_id", id).Msg("goal changed since listing, delete skipped")
			continue
		}
		applied.Delete = append(applied.Delete, id)
		if err := s.mirrors.Delete(ctx, id); err != nil {
			return applied, fmt.Errorf("reconcile: delete %s: %w", id, err)
		}
		metrics.ReconcileActionsTotal.WithLabelValues("delete").Inc()
	}

	s.logger.Info().
		Str("owner_uid", ownerUID).
		Int("upserted", len(applied.Upsert)).
		Int("deleted", len(applied.Delete)).
		Msg("mirrors reconciled")

	return applied, nil
}

// currentGoal re-reads one goal. A missing goal is (nil, nil).
func (s *ReconcileService) currentGoal(ctx context.Context, ownerUID, goalID string) (*domain.Goal, error) {
	g, err := s.goals.Get(ctx, ownerUID, goalID)
	if errors.Is(err, domain.ErrGoalNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reconcile: get goal %s: %w", goalID, err)
	}
	return g, nil
}

// PlanReconcile classifies every goal and mirror of one owner:
//
//   - Pass 1 (over goals): a public goal whose mirror is missing or differs from
//     its projection is upserted.
//   - Pass 2 (over mirrors): a mirror whose goal is absent or private is deleted.
//
// ctx cancellation is checked on each iteration.
func PlanReconcile(ctx context.Context, goals []*domain.Goal, mirrors []*domain.Mirror, authorName string) (ports.ReconcilePlan, error) {
	var plan ports.ReconcilePlan

	mirrorIndex := make(map[string]*domain.Mirror, len(mirrors))
	for _, m := range mirrors {
		mirrorIndex[m.ID] = m
	}
	goalIndex := make(map[string]*domain.Goal, len(goals))
	for _, g := range goals {
		goalIndex[g.ID] = g
	}

	for _, g := range goals {
		if err := ctx.Err(); err != nil {
			return ports.ReconcilePlan{}, err
		}
		if !g.Public {
			continue
		}
		want := domain.MirrorOf(*g, authorName)
		if have, ok := mirrorIndex[g.ID]; !ok || !have.InSync(want) {
			plan.Upsert = append(plan.Upsert, want)
		}
	}

	for _, m := range mirrors {
		if err := ctx.Err(); err != nil {
			return ports.ReconcilePlan{}, err
		}
		if g, ok := goalIndex[m.ID]; !ok || !g.Public {
			plan.Delete = append(plan.Delete, m.ID)
		}
	}

	return plan, nil
}
