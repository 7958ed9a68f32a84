package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSummaryAddBucketsByProcessor(t *testing.T) {
	t.Parallel()

	var s Summary
	s.Add(ProcessedPayment{ProcessorUsed: Default, Amount: decimal.NewFromInt(10)})
	s.Add(ProcessedPayment{ProcessorUsed: Fallback, Amount: decimal.NewFromInt(5)})
	s.Add(ProcessedPayment{ProcessorUsed: Default, Amount: decimal.NewFromInt(3)})

	if s.Default.TotalRequests != 2 || !s.Default.TotalAmount.Equal(decimal.NewFromInt(13)) {
		t.Fatalf("Default = %+v", s.Default)
	}
	if s.Fallback.TotalRequests != 1 || !s.Fallback.TotalAmount.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("Fallback = %+v", s.Fallback)
	}
}

func TestSummaryMergeAddsBothSides(t *testing.T) {
	t.Parallel()

	a := Summary{Default: ProcessorSummary{TotalRequests: 1, TotalAmount: decimal.NewFromInt(10)}}
	b := Summary{Default: ProcessorSummary{TotalRequests: 2, TotalAmount: decimal.NewFromInt(20)}}

	a.Merge(b)

	if a.Default.TotalRequests != 3 || !a.Default.TotalAmount.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("Default = %+v", a.Default)
	}
}

func TestScoreMillisRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	ms := ScoreMillis(now)
	got := TimeFromScoreMillis(ms)

	if !got.Equal(now) {
		t.Fatalf("round trip = %v, want %v", got, now)
	}
}

func TestTimeFromScoreMillisSentinels(t *testing.T) {
	t.Parallel()

	if !TimeFromScoreMillis(NegInfScore).IsZero() {
		t.Fatal("expected NegInfScore to map to the zero time")
	}
	if !TimeFromScoreMillis(PosInfScore).After(time.Now()) {
		t.Fatal("expected PosInfScore to map to a time far in the future")
	}
}

func TestProcessorIDName(t *testing.T) {
	t.Parallel()

	if Default.Name() != "default" {
		t.Fatalf("Default.Name() = %q", Default.Name())
	}
	if Fallback.Name() != "fallback" {
		t.Fatalf("Fallback.Name() = %q", Fallback.Name())
	}
	if got := ProcessorID(99).Name(); got != "" {
		t.Fatalf("unknown ProcessorID.Name() = %q, want empty", got)
	}
}
