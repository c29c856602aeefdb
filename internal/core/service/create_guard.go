package service

import (
	"context"
	"sync"

	"github.com/pbnkron/kron/internal/core/domain"
)

// LocalCreateGuard is an in-process CreateGuard for single-instance deployments.
type LocalCreateGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewLocalCreateGuard() *LocalCreateGuard {
	return &LocalCreateGuard{inFlight: make(map[string]struct{})}
}

// Acquire marks ownerUID as having a create in flight.
func (g *LocalCreateGuard) Acquire(_ context.Context, ownerUID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[ownerUID]; busy {
		return func() {}, domain.ErrCreateInFlight
	}
	g.inFlight[ownerUID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, ownerUID)
			g.mu.Unlock()
		})
	}, nil
}
