// Package idempotency implements an atomic set-if-absent claim on a
// correlation id, the one cross-instance synchronization point in the
// pipeline.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// TTL is how long a claim key lives once set, comfortably past the
// longest plausible end-to-end retry window for a single payment.
const TTL = 2 * time.Hour

const claimedSentinel = "1"

// Registry wraps a Redis client to provide SETNX-based claims.
type Registry struct {
	rdb *redis.Client
}

// New wraps an existing Redis client as an Idempotency Registry.
func New(rdb *redis.Client) *Registry {
	return &Registry{rdb: rdb}
}

func key(correlationID uuid.UUID) string {
	return fmt.Sprintf("paid:%s", correlationID)
}

// TryClaim atomically claims correlationID. It returns true iff the caller
// won the claim; any other caller (this worker retried, another worker,
// another process instance) sees false and must skip further processing.
func (r *Registry) TryClaim(ctx context.Context, correlationID uuid.UUID) (bool, error) {
	won, err := r.rdb.SetNX(ctx, key(correlationID), claimedSentinel, TTL).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: setnx: %w", err)
	}
	return won, nil
}
