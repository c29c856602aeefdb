package service

import (
	"context"

	"github.com/pbnkron/kron/internal/core/domain"
	"github.com/pbnkron/kron/internal/core/ports"
)

// FeedService reads the shared public feed. It never writes.
type FeedService struct {
	mirrors ports.MirrorRepository
	watcher ports.FeedWatcher
}

func NewFeedService(mirrors ports.MirrorRepository, watcher ports.FeedWatcher) *FeedService {
	return &FeedService{mirrors: mirrors, watcher: watcher}
}

func (s *FeedService) List(ctx context.Context, filter domain.GoalFilter) ([]*domain.Mirror, error) {
	return s.mirrors.List(ctx, filter)
}

// Watch streams feed snapshots until ctx is done.
func (s *FeedService) Watch(ctx context.Context, filter domain.GoalFilter) (<-chan []*domain.Mirror, error) {
	return s.watcher.Watch(ctx, filter)
}
