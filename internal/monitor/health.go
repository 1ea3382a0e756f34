package monitor

import (
	"sync"
	"time"
)

// HealthStatus summarises how the poll loop is doing.
type HealthStatus string

const (
	StatusHealthy      HealthStatus = "healthy"
	StatusDegraded     HealthStatus = "degraded"
	StatusDisconnected HealthStatus = "disconnected"
)

// degradedAfter is the number of consecutive failed polls after which the
// monitor reports itself degraded.
const degradedAfter = 3

// Health is a point-in-time copy of the poll health counters.
type Health struct {
	Status              HealthStatus `json:"status"`
	Running             bool         `json:"running"`
	Polls               uint64       `json:"polls"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	Reconnects          int          `json:"reconnects"`
	LastError           string       `json:"lastError,omitempty"`
	LastErrorAt         time.Time    `json:"lastErrorAt,omitempty"`
	LastSuccessAt       time.Time    `json:"lastSuccessAt,omitempty"`
}

// pollHealth tracks poll outcomes. The monitor goroutine writes it while
// HTTP handlers read it, so every field is guarded by mu.
type pollHealth struct {
	mu                  sync.Mutex
	polls               uint64
	consecutiveFailures int
	reconnects          int
	disconnected        bool
	lastErr             string
	lastErrAt           time.Time
	lastSuccess         time.Time
}

func (h *pollHealth) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.polls++
	h.consecutiveFailures = 0
	h.lastSuccess = time.Now()
}

func (h *pollHealth) recordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.polls++
	h.consecutiveFailures++
	h.lastErr = err.Error()
	h.lastErrAt = time.Now()
}

func (h *pollHealth) recordDisconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnected = true
}

func (h *pollHealth) recordReconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnected = false
	h.reconnects++
}

// statusLocked computes the status. Caller must hold h.mu.
func (h *pollHealth) statusLocked() HealthStatus {
	if h.disconnected {
		return StatusDisconnected
	}
	if h.consecutiveFailures >= degradedAfter {
		return StatusDegraded
	}
	return StatusHealthy
}

func (h *pollHealth) snapshot() Health {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Health{
		Status:              h.statusLocked(),
		Polls:               h.polls,
		ConsecutiveFailures: h.consecutiveFailures,
		Reconnects:          h.reconnects,
		LastError:           h.lastErr,
		LastErrorAt:         h.lastErrAt,
		LastSuccessAt:       h.lastSuccess,
	}
}
