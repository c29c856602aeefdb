package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pbnkron/kron/internal/core/domain"
)

func TestLocalCreateGuard_SecondAcquireRejected(t *testing.T) {
	g := NewLocalCreateGuard()

	release, err := g.Acquire(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := g.Acquire(context.Background(), "u1"); !errors.Is(err, domain.ErrCreateInFlight) {
		t.Fatalf("expected ErrCreateInFlight, got %v", err)
	}
	if _, err := g.Acquire(context.Background(), "u2"); err != nil {
		t.Fatalf("other owners must not be blocked: %v", err)
	}

	release()
	release()

	if _, err := g.Acquire(context.Background(), "u1"); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}

func TestLocalCreateGuard_Concurrent(t *testing.T) {
	g := NewLocalCreateGuard()
	var (
		wg      sync.WaitGroup
		granted atomic.Int32
		start   = make(chan struct{})
	)

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := g.Acquire(context.Background(), "u1"); err == nil {
				granted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := granted.Load(); got != 1 {
		t.Fatalf("expected exactly one grant, got %d", got)
	}
}
