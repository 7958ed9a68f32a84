// Package selector chooses a processor for one claimed payment, retries
// with failover and backoff, and writes the ledger record on success.
package selector

import (
	"context"
	"fmt"
	"time"

	"github.com/rinha-gateway/gateway/internal/apperr"
	"github.com/rinha-gateway/gateway/internal/domain"
	"github.com/rinha-gateway/gateway/internal/processor"
)

const (
	maxAttempts    = 3
	initialBackoff = 100 * time.Millisecond
)

// HealthView is the subset of the health monitor the selector consumes.
type HealthView interface {
	ShouldUseDefault() bool
	ReportFailure(domain.ProcessorID)
	ReportSlowness(domain.ProcessorID)
}

// Poster issues one processor POST and classifies the outcome. Satisfied
// by *processor.Client.
type Poster interface {
	Post(ctx context.Context, req domain.ProcessorRequest) processor.Outcome
}

// Ledger is the subset of the ledger store the selector needs to record a
// successful payment.
type Ledger interface {
	Append(ctx context.Context, record domain.ProcessedPayment) error
}

// Selector owns the retry loop for one payment at a time. A single
// Selector instance is shared by every worker; it holds no per-payment
// state.
type Selector struct {
	health  HealthView
	posters map[domain.ProcessorID]Poster
	ledger  Ledger
}

// New builds a Selector wired to the given health view, the per-processor
// posters, and the ledger store it writes successes to.
func New(health HealthView, posters map[domain.ProcessorID]Poster, ledger Ledger) *Selector {
	return &Selector{health: health, posters: posters, ledger: ledger}
}

func targetID(useDefault bool) domain.ProcessorID {
	if useDefault {
		return domain.Default
	}
	return domain.Fallback
}

// Process runs the up-to-3-attempt retry loop for one payment. It returns
// nil on a successful ledger write, apperr.ErrRejected when the processor
// semantically refused the payment, or apperr.ErrExhausted when the
// attempt budget is spent with no success. ctx carries the worker's own
// lifecycle cancellation; the ingress request's deadline is not carried
// through the queue and does not bound this loop.
func (s *Selector) Process(ctx context.Context, req domain.PaymentRequest) error {
	useDefault := s.health.ShouldUseDefault()
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		target := targetID(useDefault)
		poster := s.posters[target]

		procReq := domain.ProcessorRequest{
			CorrelationID: req.CorrelationID,
			Amount:        req.Amount,
			RequestedAt:   time.Now().UTC(),
		}

		outcome := poster.Post(ctx, procReq)

		switch outcome {
		case processor.Success:
			record := domain.ProcessedPayment{
				CorrelationID: req.CorrelationID,
				Amount:        req.Amount,
				ProcessedAt:   time.Now().UTC(),
				ProcessorUsed: target,
			}
			if err := s.ledger.Append(ctx, record); err != nil {
				return fmt.Errorf("ledger append: %w: %w", apperr.ErrStoreFailure, err)
			}
			return nil

		case processor.Rejected:
			return apperr.ErrRejected

		case processor.ServerError, processor.Transport:
			s.health.ReportFailure(target)
			useDefault = !useDefault

		case processor.Timeout:
			s.health.ReportSlowness(target)
			// keep same processor; do not flip useDefault.
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt < maxAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
	}

	return apperr.ErrExhausted
}
