// Package httpapi is the ingress adapter: a fiber router exposing POST
// /payments (admission into the bounded queue) and GET /payments-summary
// (hot ledger merged with archived cold storage).
package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/rinha-gateway/gateway/internal/alloc"
	"github.com/rinha-gateway/gateway/internal/apperr"
	"github.com/rinha-gateway/gateway/internal/domain"
)

var json = jsoniter.ConfigFastest

// requestPoolWarmup is how many *domain.PaymentRequest structs New
// pre-allocates, forcing the pool's backing allocations up front instead of
// on the first requests to land.
const requestPoolWarmup = 10_000

var requestPool = sync.Pool{
	New: func() interface{} {
		return &domain.PaymentRequest{}
	},
}

// admissionTimeout bounds how long POST /payments will wait for the
// bounded queue to accept an item before returning 504.
const admissionTimeout = 2 * time.Second

// Admitter is the subset of the worker queue the ingress adapter needs.
type Admitter interface {
	Add(ctx context.Context, item *domain.PaymentRequest) error
}

// SummaryReader is the subset of the ledger store GET /payments-summary
// needs.
type SummaryReader interface {
	RangeByScore(ctx context.Context, fromMs, toMs int64) ([]domain.ProcessedPayment, error)
}

// ArchiveReader is the subset of the archiver GET /payments-summary
// consults for records already compacted out of the hot ledger.
type ArchiveReader interface {
	SummarizeArchived(ctx context.Context, from, to time.Time) (domain.Summary, error)
}

// Server wires the two routes onto a fiber.App.
type Server struct {
	admitter Admitter
	ledger   SummaryReader
	archive  ArchiveReader
}

// New builds a Server around the queue and the two summary sources,
// warming the request pool up front.
func New(admitter Admitter, ledger SummaryReader, archive ArchiveReader) *Server {
	alloc.PreAllocate[domain.PaymentRequest](&requestPool, requestPoolWarmup)
	return &Server{admitter: admitter, ledger: ledger, archive: archive}
}

// Register mounts the gateway's routes onto app.
func (s *Server) Register(app *fiber.App) {
	app.Use(func(c *fiber.Ctx) error {
		c.Set("Server", "rinha")
		return c.Next()
	})
	app.Post("/payments", s.postPayments)
	app.Get("/payments-summary", s.getSummary)
}

type paymentBody struct {
	CorrelationID string          `json:"correlationId"`
	Amount        jsoniter.Number `json:"amount"`
}

func (s *Server) postPayments(c *fiber.Ctx) error {
	var body paymentBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	correlationID, err := uuid.Parse(body.CorrelationID)
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	amount, err := decimal.NewFromString(string(body.Amount))
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	req := requestPool.Get().(*domain.PaymentRequest)
	req.CorrelationID = correlationID
	req.Amount = amount

	ctx, cancel := context.WithTimeout(c.Context(), admissionTimeout)
	defer cancel()

	if err := s.admitter.Add(ctx, req); err != nil {
		return c.SendStatus(apperr.IngressHTTPStatus(err))
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) getSummary(c *fiber.Ctx) error {
	rng, err := parseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	ctx := c.Context()
	records, err := s.ledger.RangeByScore(ctx, rng.fromMs, rng.toMs)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	var summary domain.Summary
	for _, r := range records {
		summary.Add(r)
	}

	if s.archive != nil {
		archived, err := s.archive.SummarizeArchived(ctx, rng.fromTime, rng.toTime)
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		summary.Merge(archived)
	}

	b, err := json.Marshal(summary)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	c.Set("Content-Type", "application/json")
	return c.Send(b)
}

// summaryRange carries both the millisecond-score bounds the hot ledger
// scans with and the time.Time bounds the archiver's SQL query takes.
type summaryRange struct {
	fromMs, toMs     int64
	fromTime, toTime time.Time
}

// parseRange parses the optional from/to ISO-8601 query params, defaulting
// to negative/positive infinity respectively when absent.
func parseRange(fromStr, toStr string) (summaryRange, error) {
	rng := summaryRange{
		fromMs:   domain.NegInfScore,
		toMs:     domain.PosInfScore,
		fromTime: negInfTime,
		toTime:   posInfTime,
	}

	if fromStr != "" {
		t, err := time.Parse(time.RFC3339Nano, fromStr)
		if err != nil {
			return summaryRange{}, err
		}
		rng.fromMs = domain.ScoreMillis(t)
		rng.fromTime = t
	}
	if toStr != "" {
		t, err := time.Parse(time.RFC3339Nano, toStr)
		if err != nil {
			return summaryRange{}, err
		}
		rng.toMs = domain.ScoreMillis(t)
		rng.toTime = t
	}
	return rng, nil
}

var (
	negInfTime = domain.TimeFromScoreMillis(domain.NegInfScore)
	posInfTime = domain.TimeFromScoreMillis(domain.PosInfScore)
)
