package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pbnkron/kron/internal/api/metrics"
	"github.com/pbnkron/kron/internal/core/domain"
	"github.com/pbnkron/kron/internal/core/ports"
)

// ProfileService owns the display name and its fan-out to public mirrors.
// authorName on a mirror is a cached copy; every rename must rewrite it.
type ProfileService struct {
	profiles ports.ProfileRepository
	mirrors  ports.MirrorRepository
	logger   zerolog.Logger
}

func NewProfileService(profiles ports.ProfileRepository, mirrors ports.MirrorRepository, logger zerolog.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, mirrors: mirrors, logger: logger}
}

// EnsureProfile creates the profile on first sign-in with the email's local
// part as username. Existing profiles are returned unchanged.
func (s *ProfileService) EnsureProfile(ctx context.Context, id domain.Identity) (*domain.Profile, error) {
	if id.UID == "" {
		return nil, domain.ErrUnauthenticated
	}
	p, err := s.profiles.Ensure(ctx, &domain.Profile{
		UID:      id.UID,
		Email:    id.Email,
		Username: domain.DefaultUsernameFor(id.Email),
	})
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	return p, nil
}

func (s *ProfileService) Get(ctx context.Context, uid string) (*domain.Profile, error) {
	return s.profiles.Get(ctx, uid)
}

// Rename sets the username, then rewrites authorName on every mirror authored
// by uid in a single batch. The mirrors may show the old name until the batch
// commits.
func (s *ProfileService) Rename(ctx context.Context, uid, newName string) (bool, error) {
	name := strings.TrimSpace(newName)
	if name == "" {
		return false, nil
	}

	if err := s.profiles.SetUsername(ctx, uid, name); err != nil {
		return false, fmt.Errorf("rename: set username: %w", err)
	}

	owned, err := s.mirrors.ListByAuthor(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("rename: list mirrors: %w", err)
	}

	if len(owned) > 0 {
		ids := make([]string, 0, len(owned))
		for _, m := range owned {
			ids = append(ids, m.ID)
		}
		if err := s.mirrors.RenameAuthor(ctx, uid, name, ids); err != nil {
			s.logger.Error().Err(err).Str("uid", uid).Int("mirrors", len(ids)).Msg("rename batch failed")
			return false, fmt.Errorf("rename: batch update: %w", err)
		}
		metrics.MirrorsRenamedTotal.Add(float64(len(ids)))
	}

	metrics.RenamesPropagatedTotal.Inc()
	s.logger.Info().Str("uid", uid).Int("mirrors", len(owned)).Msg("rename propagated")
	return true, nil
}
