package syncer

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultProbeInterval = 2 * time.Second
	maxBackoff           = 30 * time.Second
	offlineAfter         = 2
)

// Pinger is the probe a Monitor uses to test reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor turns periodic backend probes into online/offline transitions.
// One success reports online; offlineAfter consecutive failures report
// offline. While probes fail the delay between them grows up to maxBackoff.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	report   func(ctx context.Context, online bool)
	logger   *slog.Logger

	failures int
	known    bool
	online   bool
}

// NewMonitor builds a Monitor that calls report on every transition.
func NewMonitor(p Pinger, interval, timeout time.Duration, report func(ctx context.Context, online bool), logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{pinger: p, interval: interval, timeout: timeout, report: report, logger: logger}
}

// Start launches the probe loop in a goroutine and returns immediately.
func (m *Monitor) Start(ctx context.Context) {
	go m.Run(ctx)
}

// Run probes until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	for {
		wait := m.probe(ctx)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// probe pings once, reports any transition and returns the delay before
// the next probe.
func (m *Monitor) probe(ctx context.Context) time.Duration {
	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.Ping(pingCtx)
	cancel()

	if err == nil {
		m.failures = 0
		m.transition(ctx, true)
		return m.interval
	}

	m.failures++
	m.logger.Debug("backend probe failed", "failures", m.failures, "error", err)
	if m.failures >= offlineAfter {
		m.transition(ctx, false)
	}
	return calculateBackoff(m.failures, m.interval)
}

func (m *Monitor) transition(ctx context.Context, online bool) {
	if m.known && m.online == online {
		return
	}
	m.known = true
	m.online = online
	if m.report != nil {
		m.report(ctx, online)
	}
}

// calculateBackoff doubles base once per failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	delay := base
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}
