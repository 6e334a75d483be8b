package syncer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type scriptedPinger struct {
	results []error
	calls   int
}

func (p *scriptedPinger) Ping(context.Context) error {
	err := p.results[p.calls%len(p.results)]
	p.calls++
	return err
}

func TestMonitor_ProbeTransitions(t *testing.T) {
	down := errors.New("connection refused")
	pinger := &scriptedPinger{results: []error{nil, down, down, down, nil}}
	var reports []bool
	m := NewMonitor(pinger, time.Second, time.Second, func(_ context.Context, online bool) {
		reports = append(reports, online)
	}, nil)

	ctx := context.Background()
	waits := []time.Duration{
		m.probe(ctx), // ok: online
		m.probe(ctx), // 1 failure: still online
		m.probe(ctx), // 2 failures: offline
		m.probe(ctx), // 3 failures
		m.probe(ctx), // ok: online again
	}

	want := []bool{true, false, true}
	if len(reports) != len(want) {
		t.Fatalf("reports = %v, want %v", reports, want)
	}
	for i := range want {
		if reports[i] != want[i] {
			t.Fatalf("reports = %v, want %v", reports, want)
		}
	}

	wantWaits := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, time.Second}
	for i := range wantWaits {
		if waits[i] != wantWaits[i] {
			t.Fatalf("wait[%d] = %v, want %v", i, waits[i], wantWaits[i])
		}
	}
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	pinger := &scriptedPinger{results: []error{nil}}
	m := NewMonitor(pinger, time.Hour, time.Second, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
