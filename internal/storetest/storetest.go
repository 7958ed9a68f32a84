// Package storetest provides in-memory fakes for the ledger store and
// idempotency registry, satisfying the narrow consumer-defined interfaces
// (selector.Ledger, worker.Claimer, archive.LedgerRange) so that
// higher-level packages can be unit tested without a live Redis. The
// backing btree.BTree, ordered by time then by correlation id to break
// ties, mirrors the ordering the real sorted-set store provides.
package storetest

import (
	"context"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/rinha-gateway/gateway/internal/domain"
)

// item wraps a domain.ProcessedPayment for btree ordering: by ProcessedAt,
// then by CorrelationID to break ties.
type item domain.ProcessedPayment

func (a item) Less(than btree.Item) bool {
	b := than.(item)
	if a.ProcessedAt.Equal(b.ProcessedAt) {
		return a.CorrelationID.String() < b.CorrelationID.String()
	}
	return a.ProcessedAt.Before(b.ProcessedAt)
}

// Ledger is a btree-backed fake of the hot ledger store.
type Ledger struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

// NewLedger returns an empty fake ledger.
func NewLedger() *Ledger {
	return &Ledger{tree: btree.New(2)}
}

// Append inserts record into the tree. Like the real Redis-backed store it
// keeps distinct records that share a score, and a record with the same
// time and correlation id replaces the earlier one; callers rely on the
// idempotency registry for uniqueness, same as production.
func (l *Ledger) Append(_ context.Context, record domain.ProcessedPayment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tree.ReplaceOrInsert(item(record))
	return nil
}

// RangeByScore walks the tree between fromMs and toMs inclusive, converting
// the millisecond bounds back to time.Time via domain's score convention.
func (l *Ledger) RangeByScore(_ context.Context, fromMs, toMs int64) ([]domain.ProcessedPayment, error) {
	from := msToTime(fromMs)
	to := msToTime(toMs)

	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.ProcessedPayment
	l.tree.AscendGreaterOrEqual(item(domain.ProcessedPayment{ProcessedAt: from}), func(btreeItem btree.Item) bool {
		p := domain.ProcessedPayment(btreeItem.(item))
		if p.ProcessedAt.After(to) {
			return false
		}
		out = append(out, p)
		return true
	})
	return out, nil
}

// RemoveRange deletes every record scored within [fromMs, toMs].
func (l *Ledger) RemoveRange(ctx context.Context, fromMs, toMs int64) error {
	records, err := l.RangeByScore(ctx, fromMs, toMs)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range records {
		l.tree.Delete(item(r))
	}
	return nil
}

// Len reports how many records remain, for test assertions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tree.Len()
}

func msToTime(ms int64) time.Time {
	return domain.TimeFromScoreMillis(ms)
}

// Registry is an in-memory fake of the idempotency registry: a plain set
// keyed by correlation id.
type Registry struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewRegistry returns an empty fake registry.
func NewRegistry() *Registry {
	return &Registry{claimed: make(map[string]struct{})}
}

// TryClaim reports whether correlationID was not already claimed, claiming
// it atomically if so.
func (r *Registry) TryClaim(_ context.Context, correlationID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := correlationID.String()
	if _, exists := r.claimed[key]; exists {
		return false, nil
	}
	r.claimed[key] = struct{}{}
	return true, nil
}
