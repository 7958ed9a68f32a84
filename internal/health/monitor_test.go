package health

import (
	"context"
	"errors"
	"testing"

	"github.com/rinha-gateway/gateway/internal/domain"
)

type fakeChecker struct {
	status domain.HealthStatus
	err    error
}

func (f fakeChecker) HealthStatus(context.Context) (domain.HealthStatus, error) {
	return f.status, f.err
}

func newMonitor(def, fb fakeChecker) *Monitor {
	return New(map[domain.ProcessorID]Checker{
		domain.Default:  def,
		domain.Fallback: fb,
	})
}

func TestShouldUseDefaultWhenBothHealthy(t *testing.T) {
	t.Parallel()

	m := newMonitor(fakeChecker{}, fakeChecker{})
	if !m.ShouldUseDefault() {
		t.Fatal("expected default to be preferred when both are healthy")
	}
}

func TestShouldUseDefaultPrefersFallbackWhenDefaultFailingAndFallbackHealthy(t *testing.T) {
	t.Parallel()

	m := newMonitor(fakeChecker{}, fakeChecker{})
	m.ReportFailure(domain.Default)

	if m.ShouldUseDefault() {
		t.Fatal("expected fallback to be preferred once default is reported failing")
	}
}

func TestShouldUseDefaultFallsBackToDefaultWhenBothFailing(t *testing.T) {
	t.Parallel()

	m := newMonitor(fakeChecker{}, fakeChecker{})
	m.ReportFailure(domain.Default)
	m.ReportFailure(domain.Fallback)

	if !m.ShouldUseDefault() {
		t.Fatal("expected default to be preferred when both processors are failing")
	}
}

func TestReportSlownessClampsToFloor(t *testing.T) {
	t.Parallel()

	m := newMonitor(fakeChecker{}, fakeChecker{})
	m.ReportSlowness(domain.Default)

	got := m.Snapshot(domain.Default)
	if got.MinResponseTime != minSlownessMs {
		t.Fatalf("MinResponseTime = %d, want %d", got.MinResponseTime, minSlownessMs)
	}

	m.ReportSlowness(domain.Default)
	got = m.Snapshot(domain.Default)
	if got.MinResponseTime != minSlownessMs {
		t.Fatalf("repeated ReportSlowness changed MinResponseTime to %d", got.MinResponseTime)
	}
}

func TestPollOneMarksFailingOnCheckerError(t *testing.T) {
	t.Parallel()

	m := newMonitor(fakeChecker{err: errors.New("unreachable")}, fakeChecker{})
	m.pollOne(context.Background(), domain.Default, m.checkers[domain.Default])

	if !m.Snapshot(domain.Default).Failing {
		t.Fatal("expected Default to be marked failing after a checker error")
	}
}

func TestPollOneHonorsRateLimit(t *testing.T) {
	t.Parallel()

	checker := fakeChecker{status: domain.HealthStatus{Failing: true}}
	m := newMonitor(checker, fakeChecker{})

	m.pollOne(context.Background(), domain.Default, m.checkers[domain.Default])
	if !m.Snapshot(domain.Default).Failing {
		t.Fatal("expected first poll to record failing=true")
	}

	m.checkers[domain.Default] = fakeChecker{status: domain.HealthStatus{Failing: false}}
	m.pollOne(context.Background(), domain.Default, m.checkers[domain.Default])

	if !m.Snapshot(domain.Default).Failing {
		t.Fatal("expected rate-limited second poll to leave state unchanged")
	}
}
