// Package worker runs N concurrent workers (N = CPU cores by default)
// draining the bounded queue, claiming idempotency, and running the
// selector's retry loop for each item. Lifecycle coordination uses
// golang.org/x/sync/errgroup rather than a raw sync.WaitGroup so a worker
// returning an error cancels its siblings' context.
package worker

import (
	"context"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rinha-gateway/gateway/internal/apperr"
	"github.com/rinha-gateway/gateway/internal/domain"
	"github.com/rinha-gateway/gateway/internal/queue"
)

// Claimer is the subset of the idempotency registry a worker needs.
type Claimer interface {
	TryClaim(ctx context.Context, correlationID uuid.UUID) (bool, error)
}

// Processor runs the full selector retry loop for one payment.
type Processor interface {
	Process(ctx context.Context, req domain.PaymentRequest) error
}

// Pool owns a fixed number of worker goroutines draining a shared bounded
// queue.
type Pool struct {
	queue     *queue.Queue[domain.PaymentRequest]
	claimer   Claimer
	processor Processor
	workers   int
}

// New builds a Pool of the given size around the shared queue, claimer,
// and processor (selector).
func New(q *queue.Queue[domain.PaymentRequest], claimer Claimer, processor Processor, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{queue: q, claimer: claimer, processor: processor, workers: workers}
}

// Run starts every worker and blocks until all of them have returned. A
// worker returns once the queue is closed and drained, or once ctx is
// cancelled and nothing is left buffered.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			p.runOne(ctx)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pool) runOne(ctx context.Context) {
	for {
		select {
		case item, ok := <-p.queue.Items():
			if !ok {
				return
			}
			p.handle(ctx, *item)
		case <-ctx.Done():
			// Drain whatever is already buffered before exiting, honoring
			// the bounded drain deadline enforced by the caller's ctx.
			for {
				select {
				case item, ok := <-p.queue.Items():
					if !ok {
						return
					}
					p.handle(ctx, *item)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) handle(ctx context.Context, req domain.PaymentRequest) {
	won, err := p.claimer.TryClaim(ctx, req.CorrelationID)
	if err != nil {
		log.Printf("worker: idempotency claim failed correlationId=%s err=%v", req.CorrelationID, err)
		return
	}
	if !won {
		// Already claimed by this or another instance: terminate
		// successfully with no processor call.
		return
	}

	if err := p.processor.Process(ctx, req); err != nil {
		log.Printf("worker: processing ended correlationId=%s kind=%s err=%v", req.CorrelationID, apperr.Kind(err), err)
	}
}
