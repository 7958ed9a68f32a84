// Package domain holds the data model shared by every component of the
// payment gateway: the shapes that cross the ingress boundary, the shapes
// sent to the upstream processors, and the shapes persisted to the ledger.
package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProcessorID identifies one of the two upstream payment processors.
type ProcessorID int

const (
	Default ProcessorID = iota
	Fallback
)

// ProcessorName is the lowercase wire name used in JSON summaries.
type ProcessorName string

func (p ProcessorID) Name() ProcessorName {
	switch p {
	case Default:
		return "default"
	case Fallback:
		return "fallback"
	default:
		return ""
	}
}

func (p ProcessorID) String() string {
	return string(p.Name())
}

// PaymentRequest is the client-supplied payment intent. Immutable once
// accepted at ingress.
type PaymentRequest struct {
	CorrelationID uuid.UUID       `json:"correlationId"`
	Amount        decimal.Decimal `json:"amount"`
}

// ProcessorRequest is built just before each processor POST. RequestedAt is
// recomputed on every retry attempt (see DESIGN.md, "requestedAt
// recomputation").
type ProcessorRequest struct {
	CorrelationID uuid.UUID       `json:"correlationId"`
	Amount        decimal.Decimal `json:"amount"`
	RequestedAt   time.Time       `json:"requestedAt"`
}

// ProcessedPayment is the ledger record written exactly once per
// successfully processed payment.
type ProcessedPayment struct {
	CorrelationID uuid.UUID       `json:"correlationId"`
	Amount        decimal.Decimal `json:"amount"`
	ProcessedAt   time.Time       `json:"processedAt"`
	ProcessorUsed ProcessorID     `json:"processorUsed"`
}

// HealthStatus is the wire shape returned by a processor's
// /payments/service-health endpoint.
type HealthStatus struct {
	Failing         bool `json:"failing"`
	MinResponseTime int  `json:"minResponseTime"`
}

// ProcessorSummary is the per-processor aggregate exposed by
// GET /payments-summary.
type ProcessorSummary struct {
	TotalRequests int64           `json:"totalRequests"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

// Summary is the full payments-summary response body.
type Summary struct {
	Default  ProcessorSummary `json:"default"`
	Fallback ProcessorSummary `json:"fallback"`
}

// Add folds one processed payment into the summary bucket for its processor.
func (s *Summary) Add(p ProcessedPayment) {
	switch p.ProcessorUsed {
	case Default:
		s.Default.TotalRequests++
		s.Default.TotalAmount = s.Default.TotalAmount.Add(p.Amount)
	case Fallback:
		s.Fallback.TotalRequests++
		s.Fallback.TotalAmount = s.Fallback.TotalAmount.Add(p.Amount)
	}
}

// Merge combines another summary's totals into s, used to fold the hot
// ledger's summary together with the archiver's cold-storage summary.
func (s *Summary) Merge(other Summary) {
	s.Default.TotalRequests += other.Default.TotalRequests
	s.Default.TotalAmount = s.Default.TotalAmount.Add(other.Default.TotalAmount)
	s.Fallback.TotalRequests += other.Fallback.TotalRequests
	s.Fallback.TotalAmount = s.Fallback.TotalAmount.Add(other.Fallback.TotalAmount)
}

// ScoreMillis converts t to the millisecond Unix score used to key the
// ledger's sorted set.
func ScoreMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// NegInfScore and PosInfScore are the sentinel millisecond scores used
// when a range query's bound is absent, matching the ledger store's
// -inf/+inf ZRANGEBYSCORE convention.
const (
	NegInfScore = math.MinInt64
	PosInfScore = math.MaxInt64
)

// TimeFromScoreMillis inverts ScoreMillis. NegInfScore/PosInfScore map to
// the zero time and a time far in the future, respectively, so range scans
// against fake stores that walk time.Time directly behave like the real
// store's -inf/+inf bounds.
func TimeFromScoreMillis(ms int64) time.Time {
	switch ms {
	case NegInfScore:
		return time.Time{}
	case PosInfScore:
		return time.Unix(1<<62, 0).UTC()
	default:
		return time.UnixMilli(ms).UTC()
	}
}
