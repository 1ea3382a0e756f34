package monitor

import (
	"fmt"
	"sync"
	"testing"
)

func TestPollHealthFailureTracking(t *testing.T) {
	var h pollHealth

	if got := h.snapshot().Status; got != StatusHealthy {
		t.Fatalf("new health = %s, want healthy", got)
	}

	// Accumulate failures below threshold
	h.recordFailure(fmt.Errorf("connection refused"))
	h.recordFailure(fmt.Errorf("timeout"))
	if got := h.snapshot().Status; got != StatusHealthy {
		t.Errorf("status below threshold = %s, want healthy", got)
	}

	// Hit threshold
	h.recordFailure(fmt.Errorf("still broken"))
	snap := h.snapshot()
	if snap.Status != StatusDegraded {
		t.Errorf("status at threshold = %s, want degraded", snap.Status)
	}
	if snap.LastError != "still broken" {
		t.Errorf("LastError = %q, want %q", snap.LastError, "still broken")
	}
	if snap.LastErrorAt.IsZero() {
		t.Error("LastErrorAt not set")
	}
	if snap.Polls != 3 || snap.ConsecutiveFailures != 3 {
		t.Errorf("Polls = %d, ConsecutiveFailures = %d, want 3, 3", snap.Polls, snap.ConsecutiveFailures)
	}
}

func TestPollHealthRecovery(t *testing.T) {
	var h pollHealth

	for i := 0; i < 5; i++ {
		h.recordFailure(fmt.Errorf("fail %d", i))
	}
	h.recordSuccess()

	snap := h.snapshot()
	if snap.Status != StatusHealthy {
		t.Errorf("status after success = %s, want healthy", snap.Status)
	}
	if snap.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", snap.ConsecutiveFailures)
	}
	// The last error is history, not state.
	if snap.LastError != "fail 4" {
		t.Errorf("LastError = %q, want %q", snap.LastError, "fail 4")
	}
	if snap.LastSuccessAt.IsZero() {
		t.Error("LastSuccessAt not set")
	}
	if snap.Polls != 6 {
		t.Errorf("Polls = %d, want 6", snap.Polls)
	}
}

func TestPollHealthDisconnectOverridesDegraded(t *testing.T) {
	var h pollHealth

	h.recordDisconnect()
	if got := h.snapshot().Status; got != StatusDisconnected {
		t.Errorf("status = %s, want disconnected", got)
	}

	for i := 0; i < degradedAfter; i++ {
		h.recordFailure(fmt.Errorf("x"))
	}
	if got := h.snapshot().Status; got != StatusDisconnected {
		t.Errorf("status = %s, want disconnected to win over degraded", got)
	}

	h.recordReconnect()
	snap := h.snapshot()
	if snap.Status != StatusDegraded {
		t.Errorf("status after reconnect = %s, want degraded until a poll succeeds", snap.Status)
	}
	if snap.Reconnects != 1 {
		t.Errorf("Reconnects = %d, want 1", snap.Reconnects)
	}
}

func TestPollHealthConcurrent(t *testing.T) {
	var h pollHealth
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.recordSuccess()
				h.recordFailure(fmt.Errorf("e"))
				_ = h.snapshot()
			}
		}()
	}
	wg.Wait()

	if got := h.snapshot().Polls; got != 800 {
		t.Errorf("Polls = %d, want 800", got)
	}
}
