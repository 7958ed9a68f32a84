// Package ledger implements a time-scored ordered collection of processed
// payments, backed by Redis's sorted-set contract (ZADD/ZRANGEBYSCORE).
package ledger

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/rinha-gateway/gateway/internal/domain"
)

var json = jsoniter.ConfigFastest

// ZSetKey is the single logical sorted-set name the hot ledger lives under.
const ZSetKey = "payments"

// Store appends processed payments to, and range-scans them from, a Redis
// sorted set keyed by ZSetKey.
type Store struct {
	rdb *redis.Client
}

// New wraps an existing Redis client as a Ledger Store.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

type wireRecord struct {
	CorrelationID string `json:"c"`
	Amount        string `json:"a"`
	ProcessedAt   int64  `json:"t"`
	ProcessorUsed int    `json:"p"`
}

func encode(p domain.ProcessedPayment) (string, error) {
	w := wireRecord{
		CorrelationID: p.CorrelationID.String(),
		Amount:        p.Amount.String(),
		ProcessedAt:   p.ProcessedAt.UnixNano(),
		ProcessorUsed: int(p.ProcessorUsed),
	}
	b, err := json.Marshal(w)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decode(member string) (domain.ProcessedPayment, error) {
	var w wireRecord
	if err := json.Unmarshal([]byte(member), &w); err != nil {
		return domain.ProcessedPayment{}, err
	}
	amt, err := decimal.NewFromString(w.Amount)
	if err != nil {
		return domain.ProcessedPayment{}, err
	}
	id, err := uuid.Parse(w.CorrelationID)
	if err != nil {
		return domain.ProcessedPayment{}, err
	}
	return domain.ProcessedPayment{
		CorrelationID: id,
		Amount:        amt,
		ProcessedAt:   time.Unix(0, w.ProcessedAt).UTC(),
		ProcessorUsed: domain.ProcessorID(w.ProcessorUsed),
	}, nil
}

// Append inserts record into the sorted set at score
// ProcessedAt-in-milliseconds. Duplicate members at the same score are
// permitted; logical uniqueness is enforced upstream by the idempotency
// registry.
func (s *Store) Append(ctx context.Context, record domain.ProcessedPayment) error {
	member, err := encode(record)
	if err != nil {
		return fmt.Errorf("ledger: encode: %w", err)
	}
	score := float64(domain.ScoreMillis(record.ProcessedAt))
	if err := s.rdb.ZAdd(ctx, ZSetKey, &redis.Z{Score: score, Member: member}).Err(); err != nil {
		return fmt.Errorf("ledger: zadd: %w", err)
	}
	return nil
}

// RangeByScore performs an inclusive ZRANGEBYSCORE between fromMs and
// toMs, in score order, decoding every member.
func (s *Store) RangeByScore(ctx context.Context, fromMs, toMs int64) ([]domain.ProcessedPayment, error) {
	members, err := s.rdb.ZRangeByScore(ctx, ZSetKey, &redis.ZRangeBy{
		Min: formatScore(fromMs),
		Max: formatScore(toMs),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("ledger: zrangebyscore: %w", err)
	}

	records := make([]domain.ProcessedPayment, 0, len(members))
	for _, member := range members {
		rec, err := decode(member)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// RemoveRange deletes every member scored within [fromMs, toMs], used by
// the archiver to compact the hot ledger after a confirmed cold-storage
// flush.
func (s *Store) RemoveRange(ctx context.Context, fromMs, toMs int64) error {
	if err := s.rdb.ZRemRangeByScore(ctx, ZSetKey, formatScore(fromMs), formatScore(toMs)).Err(); err != nil {
		return fmt.Errorf("ledger: zremrangebyscore: %w", err)
	}
	return nil
}

func formatScore(ms int64) string {
	if ms == math.MinInt64 {
		return "-inf"
	}
	if ms == math.MaxInt64 {
		return "+inf"
	}
	return strconv.FormatInt(ms, 10)
}

// NegInf and PosInf are the sentinel bounds used when a summary query's
// from/to is absent (both bounds are inclusive; a missing bound defaults
// to the corresponding infinity).
const (
	NegInf = domain.NegInfScore
	PosInf = domain.PosInfScore
)
