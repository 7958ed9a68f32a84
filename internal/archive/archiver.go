// Package archive moves ledger records older than a retention window out
// of the hot Redis sorted set into a Postgres cold-storage table,
// bounding the hot keyspace's growth.
package archive

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rinha-gateway/gateway/internal/domain"
	"github.com/rinha-gateway/gateway/internal/ledger"
)

const (
	createTableSQL = `
CREATE TABLE IF NOT EXISTS payments_archive (
	correlation_id UUID PRIMARY KEY,
	amount NUMERIC(18,2) NOT NULL,
	processor_id SMALLINT NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL
)`
	createIndexSQL = `CREATE INDEX IF NOT EXISTS idx_payments_archive_processed_at ON payments_archive(processed_at)`
	insertSQL      = `INSERT INTO payments_archive (correlation_id, amount, processor_id, processed_at)
		VALUES ($1, $2, $3, $4) ON CONFLICT (correlation_id) DO NOTHING`
	summarySQL = `SELECT processor_id, COUNT(*), COALESCE(SUM(amount), 0)
		FROM payments_archive WHERE processed_at BETWEEN $1 AND $2
		GROUP BY processor_id`
)

// runInterval is how often the archiver sweeps the hot ledger for records
// past the retention window.
const runInterval = 5 * time.Minute

// LedgerRange is the subset of the ledger store the archiver needs: it
// reads the tail past the retention boundary and compacts it away once
// safely persisted. Satisfied by *ledger.Store.
type LedgerRange interface {
	RangeByScore(ctx context.Context, fromMs, toMs int64) ([]domain.ProcessedPayment, error)
	RemoveRange(ctx context.Context, fromMs, toMs int64) error
}

// Archiver periodically flushes the hot ledger's aged-out tail into
// Postgres.
type Archiver struct {
	pool      *pgxpool.Pool
	ledger    LedgerRange
	retention time.Duration
}

// New builds an Archiver against an existing pgxpool.Pool and the hot
// ledger it archives from.
func New(pool *pgxpool.Pool, ledger LedgerRange, retention time.Duration) *Archiver {
	return &Archiver{pool: pool, ledger: ledger, retention: retention}
}

// EnsureSchema creates the archive table and its index if absent. Called
// once at startup.
func (a *Archiver) EnsureSchema(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, createTableSQL); err != nil {
		return err
	}
	if _, err := a.pool.Exec(ctx, createIndexSQL); err != nil {
		return err
	}
	return nil
}

// Run sweeps the hot ledger every runInterval until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context) {
	ticker := time.NewTicker(runInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Archive(ctx); err != nil {
				log.Printf("archive: sweep failed: %v", err)
			}
		}
	}
}

// Archive moves every hot-ledger record older than the retention window
// into payments_archive, then compacts the archived range out of the hot
// ledger. A crash between the insert and the compaction step can
// double-archive a record on the next sweep; ON CONFLICT DO NOTHING makes
// that safe.
func (a *Archiver) Archive(ctx context.Context) error {
	cutoff := time.Now().Add(-a.retention)
	cutoffMs := domain.ScoreMillis(cutoff)

	records, err := a.ledger.RangeByScore(ctx, ledger.NegInf, cutoffMs)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(insertSQL, r.CorrelationID, r.Amount, int(r.ProcessorUsed), r.ProcessedAt)
	}
	br := a.pool.SendBatch(ctx, batch)
	for range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}

	if err := a.ledger.RemoveRange(ctx, ledger.NegInf, cutoffMs); err != nil {
		return err
	}
	return nil
}

// SummarizeArchived aggregates payments_archive records in [from, to] by
// processor.
func (a *Archiver) SummarizeArchived(ctx context.Context, from, to time.Time) (domain.Summary, error) {
	var summary domain.Summary

	rows, err := a.pool.Query(ctx, summarySQL, from, to)
	if err != nil {
		return summary, err
	}
	defer rows.Close()

	for rows.Next() {
		var processorID int
		var count int64
		var total decimal.Decimal
		if err := rows.Scan(&processorID, &count, &total); err != nil {
			return summary, err
		}
		switch domain.ProcessorID(processorID) {
		case domain.Default:
			summary.Default.TotalRequests = count
			summary.Default.TotalAmount = summary.Default.TotalAmount.Add(total)
		case domain.Fallback:
			summary.Fallback.TotalRequests = count
			summary.Fallback.TotalAmount = summary.Fallback.TotalAmount.Add(total)
		}
	}
	return summary, rows.Err()
}
