package redis

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pbnkron/kron/internal/core/domain"
)

func TestCreateGuard_Key(t *testing.T) {
	g := NewCreateGuard(nil, 0, zerolog.Nop())
	if got := g.key("u1"); got != "kron:create:u1" {
		t.Fatalf("unexpected key %q", got)
	}
	if g.ttl != defaultGuardTTL {
		t.Fatalf("expected default ttl, got %v", g.ttl)
	}
}

func TestCreateGuard_ReleaseFailureIsLogged(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	var buf bytes.Buffer
	g := NewCreateGuard(client, time.Minute, zerolog.New(&buf))
	g.release("u1", g.key("u1"), "token")

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"owner_uid":"u1"`) {
		t.Fatalf("expected a warning naming the owner, got %q", out)
	}
}

// Runs against a live server when REDIS_ADDR is set.
func TestCreateGuard_AcquireRelease(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := Connect(ctx, Config{Addr: addr})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	g := NewCreateGuard(client, time.Minute, zerolog.Nop())
	owner := "test-" + uuid.NewString()

	release, err := g.Acquire(ctx, owner)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := g.Acquire(ctx, owner); !errors.Is(err, domain.ErrCreateInFlight) {
		t.Fatalf("expected ErrCreateInFlight, got %v", err)
	}

	release()
	release2, err := g.Acquire(ctx, owner)
	if err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
	release2()
}
