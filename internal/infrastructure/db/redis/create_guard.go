package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pbnkron/kron/internal/core/domain"
)

const defaultGuardTTL = 10 * time.Second

// releaseScript deletes the guard only if it still holds our token, so an
// expired guard re-acquired by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CreateGuard allows one outstanding goal create per owner across every API
// instance sharing the Redis database.
// Key format: kron:create:<owner_uid>
type CreateGuard struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCreateGuard wraps client. The TTL bounds how long a crashed instance can
// block its owner's creates.
func NewCreateGuard(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CreateGuard {
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	return &CreateGuard{client: client, ttl: ttl, logger: logger}
}

// Acquire takes the owner's guard with SET NX.
func (g *CreateGuard) Acquire(ctx context.Context, ownerUID string) (func(), error) {
	key := g.key(ownerUID)
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return func() {}, fmt.Errorf("create guard: %w", err)
	}
	if !ok {
		return func() {}, domain.ErrCreateInFlight
	}

	return func() { g.release(ownerUID, key, token) }, nil
}

// release drops the guard if it still holds token. A failure leaves the owner
// blocked until the TTL expires.
func (g *CreateGuard) release(ownerUID, key, token string) {
	// The request context may already be cancelled on the way out.
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := releaseScript.Run(ctx, g.client, []string{key}, token).Err(); err != nil {
		g.logger.Warn().Err(err).
			Str("owner_uid", ownerUID).
			Dur("blocked_for", g.ttl).
			Msg("create guard release failed")
	}
}

func (g *CreateGuard) key(ownerUID string) string {
	return fmt.Sprintf("kron:create:%s", ownerUID)
}
