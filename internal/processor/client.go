// Package processor implements the HTTP client that talks to a single
// upstream payment processor: one bounded-timeout POST, classified into
// one of five outcomes, plus the health-check GET consumed by the health
// monitor.
package processor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/rinha-gateway/gateway/internal/domain"
)

var json = jsoniter.ConfigFastest

// Outcome classifies the result of a single processor POST attempt.
type Outcome int

const (
	Success Outcome = iota
	Rejected
	ServerError
	Transport
	Timeout
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Rejected:
		return "rejected"
	case ServerError:
		return "server_error"
	case Transport:
		return "transport"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// sharedTransport caps per-host connections and is reused by every Client,
// matching the design's ~100 connection-per-host budget.
var sharedTransport = &http.Transport{
	MaxConnsPerHost:     100,
	MaxIdleConnsPerHost: 100,
	IdleConnTimeout:     90 * time.Second,
}

// Client issues payment POSTs and health-check GETs against one upstream
// processor endpoint.
type Client struct {
	ID       domain.ProcessorID
	Endpoint string
	http     *http.Client
}

// New builds a Client bound to a single processor endpoint. The shared
// transport caps connection reuse; requestTimeout is the per-request total
// timeout (~30s in the design), always further bounded by the caller's
// context deadline.
func New(id domain.ProcessorID, endpoint string, requestTimeout time.Duration) *Client {
	return &Client{
		ID:       id,
		Endpoint: endpoint,
		http: &http.Client{
			Transport: sharedTransport,
			Timeout:   requestTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type wireRequest struct {
	CorrelationID string `json:"correlationId"`
	Amount        string `json:"amount"`
	RequestedAt   string `json:"requestedAt"`
}

// Post sends one ProcessorRequest and classifies the result. ctx carries
// the caller's remaining deadline; every blocking call in this path
// respects it.
func (c *Client) Post(ctx context.Context, req domain.ProcessorRequest) Outcome {
	body := wireRequest{
		CorrelationID: req.CorrelationID.String(),
		Amount:        req.Amount.String(),
		RequestedAt:   req.RequestedAt.Format(time.RFC3339Nano),
	}
	b, err := json.Marshal(body)
	if err != nil {
		return ServerError
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/payments", bytes.NewReader(b))
	if err != nil {
		return Transport
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			return Timeout
		}
		return Transport
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Success
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return Rejected
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return Rejected
	case resp.StatusCode >= 500:
		return ServerError
	default:
		return ServerError
	}
}

// isTimeout reports whether err represents a deadline expiring, whether
// that deadline came from ctx or from the client's own per-request timeout.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// HealthStatus performs the GET /payments/service-health check consumed
// by the health monitor.
func (c *Client) HealthStatus(ctx context.Context) (domain.HealthStatus, error) {
	var hs domain.HealthStatus

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"/payments/service-health", nil)
	if err != nil {
		return hs, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return hs, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return hs, errors.New("non-200 health response")
	}

	if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
		return hs, err
	}
	return hs, nil
}
