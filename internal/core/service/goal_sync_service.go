package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pbnkron/kron/internal/api/metrics"
	"github.com/pbnkron/kron/internal/core/domain"
	"github.com/pbnkron/kron/internal/core/ports"
)

// GoalSyncService treats the private goal as the authoritative record and the
// public mirror as its projection. Mirror writes are always derived from the
// private record's post-write state and are never rolled back on failure.
type GoalSyncService struct {
	goals    ports.GoalRepository
	mirrors  ports.MirrorRepository
	profiles ports.ProfileRepository
	guard    ports.CreateGuard
	newID    ports.IDGenerator
	logger   zerolog.Logger
}

// NewGoalSyncService wires the service. A nil guard or id generator gets the
// defaults (in-process guard, random UUIDs).
func NewGoalSyncService(
	goals ports.GoalRepository,
	mirrors ports.MirrorRepository,
	profiles ports.ProfileRepository,
	guard ports.CreateGuard,
	newID ports.IDGenerator,
	logger zerolog.Logger,
) *GoalSyncService {
	if guard == nil {
		guard = NewLocalCreateGuard()
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &GoalSyncService{
		goals:    goals,
		mirrors:  mirrors,
		profiles: profiles,
		guard:    guard,
		newID:    newID,
		logger:   logger,
	}
}

// Create writes a new goal with status "doing" and, when requested, its mirror.
// If the mirror write fails the stored goal is still returned together with a
// *domain.MirrorSyncError.
func (s *GoalSyncService) Create(ctx context.Context, author ports.Author, in domain.NewGoalInput) (*domain.Goal, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if author.UID == "" {
		return nil, domain.ErrUnauthenticated
	}

	release, err := s.guard.Acquire(ctx, author.UID)
	if err != nil {
		return nil, err
	}
	defer release()

	var authorName string
	if in.IsPublic {
		authorName, err = s.authorName(ctx, author.UID, author.DisplayName, author.Email)
		if err != nil {
			return nil, fmt.Errorf("create goal: %w", err)
		}
	}

	goal := &domain.Goal{
		ID:       s.newID(),
		OwnerUID: author.UID,
		Text:     in.Text,
		Type:     in.Type,
		Status:   domain.StatusDoing,
		Deadline: in.Deadline,
		Public:   in.IsPublic,
	}

	stored, err := s.goals.Create(ctx, goal)
	if err != nil {
		s.logger.Error().Err(err).Str("owner_uid", author.UID).Msg("failed to create goal")
		return nil, fmt.Errorf("create goal: %w", err)
	}
	metrics.GoalsCreatedTotal.WithLabelValues(string(stored.Type), visibility(stored.Public)).Inc()

	if in.IsPublic {
		mirror := domain.MirrorOf(*stored, authorName)
		if err := s.mirrors.Upsert(ctx, &mirror); err != nil {
			return stored, s.mirrorFailed(stored.ID, author.UID, domain.StepMirrorUpsert, err)
		}
		metrics.MirrorWritesTotal.WithLabelValues("upsert").Inc()
	}

	s.logger.Info().
		Str("goal_id", stored.ID).
		Str("owner_uid", author.UID).
		Bool("public", stored.Public).
		Msg("goal created")

	return stored, nil
}

// Update applies patch to the private record, then brings the mirror in line
// with the effective public flag: the patched value when present, else the
// snapshot's. Turning public off deletes the mirror even if other fields
// changed in the same call.
func (s *GoalSyncService) Update(ctx context.Context, ownerUID, goalID string, patch domain.GoalPatch, current *domain.Goal) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	if current == nil {
		loaded, err := s.goals.Get(ctx, ownerUID, goalID)
		if err != nil {
			return fmt.Errorf("update goal: %w", err)
		}
		current = loaded
	}

	if err := s.goals.Update(ctx, ownerUID, goalID, patch); err != nil {
		return fmt.Errorf("update goal: %w", err)
	}

	effectivePublic := current.Public
	if patch.Public != nil {
		effectivePublic = *patch.Public
	}

	switch {
	case effectivePublic:
		merged := patch.Apply(*current)
		merged.ID = goalID
		merged.OwnerUID = ownerUID
		merged.Public = true

		name, err := s.authorName(ctx, ownerUID, "", "")
		if err != nil {
			return s.mirrorFailed(goalID, ownerUID, domain.StepMirrorUpsert, err)
		}
		mirror := domain.MirrorOf(merged, name)
		if err := s.mirrors.Upsert(ctx, &mirror); err != nil {
			return s.mirrorFailed(goalID, ownerUID, domain.StepMirrorUpsert, err)
		}
		metrics.MirrorWritesTotal.WithLabelValues("upsert").Inc()

	case current.Public || patch.Public != nil:
		if err := s.mirrors.Delete(ctx, goalID); err != nil {
			return s.mirrorFailed(goalID, ownerUID, domain.StepMirrorDelete, err)
		}
		metrics.MirrorWritesTotal.WithLabelValues("delete").Inc()
		s.logger.Info().Str("goal_id", goalID).Str("owner_uid", ownerUID).Msg("mirror deleted")
	}

	s.logger.Info().Str("goal_id", goalID).Str("owner_uid", ownerUID).Bool("public", effectivePublic).Msg("goal updated")
	return nil
}

// Delete removes the private record and, when it was public, its mirror.
func (s *GoalSyncService) Delete(ctx context.Context, ownerUID, goalID string, wasPublic bool) error {
	if err := s.goals.Delete(ctx, ownerUID, goalID); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}

	if wasPublic {
		if err := s.mirrors.Delete(ctx, goalID); err != nil {
			return s.mirrorFailed(goalID, ownerUID, domain.StepMirrorDelete, err)
		}
		metrics.MirrorWritesTotal.WithLabelValues("delete").Inc()
	}

	s.logger.Info().Str("goal_id", goalID).Str("owner_uid", ownerUID).Msg("goal deleted")
	return nil
}

// Get returns one of the owner's goals.
func (s *GoalSyncService) Get(ctx context.Context, ownerUID, goalID string) (*domain.Goal, error) {
	return s.goals.Get(ctx, ownerUID, goalID)
}

// ListMine returns the owner's goals, newest first.
func (s *GoalSyncService) ListMine(ctx context.Context, ownerUID string, filter domain.GoalFilter) ([]*domain.Goal, error) {
	return s.goals.List(ctx, ownerUID, filter)
}

// authorName picks the name stamped on a mirror.
func (s *GoalSyncService) authorName(ctx context.Context, uid, explicit, email string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	profile, err := s.profiles.Get(ctx, uid)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return "", err
	}
	return domain.AuthorName(profile, email), nil
}

func (s *GoalSyncService) mirrorFailed(goalID, ownerUID string, step domain.MirrorStep, err error) error {
	metrics.MirrorSyncFailuresTotal.WithLabelValues(string(step)).Inc()
	s.logger.Error().
		Err(err).
		Str("goal_id", goalID).
		Str("owner_uid", ownerUID).
		Str("step", string(step)).
		Msg("private record written but mirror write failed")
	return &domain.MirrorSyncError{GoalID: goalID, Step: step, Err: err}
}

func visibility(public bool) string {
	if public {
		return "public"
	}
	return "private"
}
