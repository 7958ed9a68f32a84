// Package health implements the background health monitor: it polls both
// processors' health endpoints on a rate-limited interval, exposes a
// lock-free "which to prefer" read, and accepts in-band failure/slowness
// hints from the selector's retry loop.
package health

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/rinha-gateway/gateway/internal/domain"
)

// minSlownessMs is the floor ReportSlowness clamps a processor's recorded
// minimum response time to.
const minSlownessMs = 1000

// pollInterval is the background poll cadence; pollRateLimit is the
// upstream's own minimum spacing between health checks per endpoint. The
// monitor honors the larger of the two.
const (
	pollInterval  = 6 * time.Second
	pollRateLimit = 5 * time.Second
)

// snapshot holds one processor's mutable health fields. Every field is an
// atomic so reads never block a writer and vice versa; readers may observe
// the two fields at slightly different points in time, which is fine here,
// so no mutex guards them together.
type snapshot struct {
	failing    atomic.Bool
	minRespMs  atomic.Int64
	lastPollAt atomic.Int64 // unix nanos
}

// Checker is the subset of processor.Client the monitor needs to poll one
// upstream's health endpoint.
type Checker interface {
	HealthStatus(ctx context.Context) (domain.HealthStatus, error)
}

// Monitor owns the health state of both processors. It is constructed once
// per process and threaded by reference into the selector; there is no
// package-level singleton.
type Monitor struct {
	checkers map[domain.ProcessorID]Checker
	state    map[domain.ProcessorID]*snapshot
}

// New builds a Monitor that will poll the given checkers.
func New(checkers map[domain.ProcessorID]Checker) *Monitor {
	m := &Monitor{
		checkers: checkers,
		state: map[domain.ProcessorID]*snapshot{
			domain.Default:  {},
			domain.Fallback: {},
		},
	}
	return m
}

// Run polls both processors on pollInterval until ctx is cancelled. Meant
// to be launched as its own background goroutine.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	m.pollAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollAll(ctx)
		}
	}
}

func (m *Monitor) pollAll(ctx context.Context) {
	for id, checker := range m.checkers {
		m.pollOne(ctx, id, checker)
	}
}

func (m *Monitor) pollOne(ctx context.Context, id domain.ProcessorID, checker Checker) {
	st := m.state[id]
	now := time.Now()
	last := st.lastPollAt.Load()
	if last != 0 && now.Sub(time.Unix(0, last)) < pollRateLimit {
		return
	}
	st.lastPollAt.Store(now.UnixNano())

	hs, err := checker.HealthStatus(ctx)
	if err != nil {
		st.failing.Store(true)
		log.Printf("health: poll failed processor=%s err=%v", id, err)
		return
	}
	st.failing.Store(hs.Failing)
	st.minRespMs.Store(int64(hs.MinResponseTime))
}

// ShouldUseDefault implements the tie-break rule: prefer default unless
// default is failing and fallback is healthy.
func (m *Monitor) ShouldUseDefault() bool {
	def := m.state[domain.Default]
	fb := m.state[domain.Fallback]
	if !def.failing.Load() {
		return true
	}
	return fb.failing.Load()
}

// ReportFailure is called by the selector after a ServerError or Transport
// outcome; it marks the processor failing immediately, ahead of the next
// poll.
func (m *Monitor) ReportFailure(id domain.ProcessorID) {
	m.state[id].failing.Store(true)
}

// ReportSlowness is called by the selector after a Timeout outcome; it
// raises the recorded minimum response time to at least minSlownessMs.
func (m *Monitor) ReportSlowness(id domain.ProcessorID) {
	st := m.state[id]
	for {
		cur := st.minRespMs.Load()
		if cur >= minSlownessMs {
			return
		}
		if st.minRespMs.CompareAndSwap(cur, minSlownessMs) {
			return
		}
	}
}

// Snapshot returns a point-in-time copy of a processor's health fields, for
// diagnostics and tests.
func (m *Monitor) Snapshot(id domain.ProcessorID) domain.HealthStatus {
	st := m.state[id]
	return domain.HealthStatus{
		Failing:         st.failing.Load(),
		MinResponseTime: int(st.minRespMs.Load()),
	}
}
