package selector

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rinha-gateway/gateway/internal/apperr"
	"github.com/rinha-gateway/gateway/internal/domain"
	"github.com/rinha-gateway/gateway/internal/processor"
)

type fakeHealth struct {
	useDefault bool
	failures   []domain.ProcessorID
	slowness   []domain.ProcessorID
}

func (f *fakeHealth) ShouldUseDefault() bool              { return f.useDefault }
func (f *fakeHealth) ReportFailure(id domain.ProcessorID)  { f.failures = append(f.failures, id) }
func (f *fakeHealth) ReportSlowness(id domain.ProcessorID) { f.slowness = append(f.slowness, id) }

type fakePoster struct {
	outcomes []processor.Outcome
	calls    int
}

func (f *fakePoster) Post(context.Context, domain.ProcessorRequest) processor.Outcome {
	o := f.outcomes[f.calls]
	f.calls++
	return o
}

type fakeLedger struct {
	appended []domain.ProcessedPayment
	err      error
}

func (f *fakeLedger) Append(_ context.Context, record domain.ProcessedPayment) error {
	f.appended = append(f.appended, record)
	return f.err
}

func newTestRequest() domain.PaymentRequest {
	return domain.PaymentRequest{CorrelationID: uuid.New(), Amount: decimal.NewFromFloat(10)}
}

func TestProcessSucceedsOnFirstAttempt(t *testing.T) {
	t.Parallel()

	health := &fakeHealth{useDefault: true}
	defaultPoster := &fakePoster{outcomes: []processor.Outcome{processor.Success}}
	fallbackPoster := &fakePoster{}
	ledger := &fakeLedger{}

	s := New(health, map[domain.ProcessorID]Poster{
		domain.Default:  defaultPoster,
		domain.Fallback: fallbackPoster,
	}, ledger)

	req := newTestRequest()
	if err := s.Process(context.Background(), req); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(ledger.appended) != 1 || ledger.appended[0].ProcessorUsed != domain.Default {
		t.Fatalf("expected one ledger record written against Default, got %+v", ledger.appended)
	}
}

func TestProcessFailsOverAfterServerError(t *testing.T) {
	t.Parallel()

	health := &fakeHealth{useDefault: true}
	defaultPoster := &fakePoster{outcomes: []processor.Outcome{processor.ServerError}}
	fallbackPoster := &fakePoster{outcomes: []processor.Outcome{processor.Success}}
	ledger := &fakeLedger{}

	s := New(health, map[domain.ProcessorID]Poster{
		domain.Default:  defaultPoster,
		domain.Fallback: fallbackPoster,
	}, ledger)

	if err := s.Process(context.Background(), newTestRequest()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(ledger.appended) != 1 || ledger.appended[0].ProcessorUsed != domain.Fallback {
		t.Fatalf("expected failover to Fallback, got %+v", ledger.appended)
	}
	if len(health.failures) != 1 || health.failures[0] != domain.Default {
		t.Fatalf("expected a reported failure against Default, got %v", health.failures)
	}
}

func TestProcessReturnsRejectedWithoutRetry(t *testing.T) {
	t.Parallel()

	health := &fakeHealth{useDefault: true}
	defaultPoster := &fakePoster{outcomes: []processor.Outcome{processor.Rejected}}
	ledger := &fakeLedger{}

	s := New(health, map[domain.ProcessorID]Poster{
		domain.Default:  defaultPoster,
		domain.Fallback: &fakePoster{},
	}, ledger)

	err := s.Process(context.Background(), newTestRequest())
	if !errors.Is(err, apperr.ErrRejected) {
		t.Fatalf("expected %v, got %v", apperr.ErrRejected, err)
	}
	if defaultPoster.calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", defaultPoster.calls)
	}
}

func TestProcessExhaustsRetryBudget(t *testing.T) {
	t.Parallel()

	health := &fakeHealth{useDefault: true}
	serverErrors := []processor.Outcome{processor.ServerError, processor.ServerError, processor.ServerError}
	s := New(health, map[domain.ProcessorID]Poster{
		domain.Default:  &fakePoster{outcomes: serverErrors},
		domain.Fallback: &fakePoster{outcomes: serverErrors},
	}, &fakeLedger{})

	err := s.Process(context.Background(), newTestRequest())
	if !errors.Is(err, apperr.ErrExhausted) {
		t.Fatalf("expected %v, got %v", apperr.ErrExhausted, err)
	}
}

func TestProcessKeepsSameProcessorOnTimeout(t *testing.T) {
	t.Parallel()

	health := &fakeHealth{useDefault: true}
	defaultPoster := &fakePoster{outcomes: []processor.Outcome{processor.Timeout, processor.Success}}
	s := New(health, map[domain.ProcessorID]Poster{
		domain.Default:  defaultPoster,
		domain.Fallback: &fakePoster{},
	}, &fakeLedger{})

	if err := s.Process(context.Background(), newTestRequest()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if defaultPoster.calls != 2 {
		t.Fatalf("expected both attempts against Default, got %d calls", defaultPoster.calls)
	}
	if len(health.slowness) != 1 || health.slowness[0] != domain.Default {
		t.Fatalf("expected a reported slowness against Default, got %v", health.slowness)
	}
}

func TestProcessAbortsOnContextCancellation(t *testing.T) {
	t.Parallel()

	health := &fakeHealth{useDefault: true}
	s := New(health, map[domain.ProcessorID]Poster{
		domain.Default:  &fakePoster{outcomes: []processor.Outcome{processor.ServerError}},
		domain.Fallback: &fakePoster{},
	}, &fakeLedger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Process(ctx, newTestRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected %v, got %v", context.Canceled, err)
	}
}

func TestProcessPropagatesLedgerFailure(t *testing.T) {
	t.Parallel()

	health := &fakeHealth{useDefault: true}
	wantErr := errors.New("ledger down")
	s := New(health, map[domain.ProcessorID]Poster{
		domain.Default:  &fakePoster{outcomes: []processor.Outcome{processor.Success}},
		domain.Fallback: &fakePoster{},
	}, &fakeLedger{err: wantErr})

	err := s.Process(context.Background(), newTestRequest())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}
