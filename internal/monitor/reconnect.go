package monitor

import (
	"context"
	"log"
	"time"
)

// ReconnectDelay is the fixed wait between connectivity probes after the
// connection to the player is lost. There is no attempt limit.
const ReconnectDelay = 5 * time.Second

// localCheckEvery limits how often the local server check is logged while
// probing: on the first attempt and then every Nth.
const localCheckEvery = 12

// reconnect reports the outage once and probes until the player answers, the
// context is cancelled or the monitor is stopped. Debounce counters and
// baselines are left untouched so polling resumes where it left off.
func (m *Monitor) reconnect(ctx context.Context, stop <-chan struct{}, cause error) {
	log.Printf("Monitor: connection lost: %v", cause)
	m.setConnected(false, cause.Error())

	timer := time.NewTimer(m.reconnectDelay)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-timer.C:
		}

		if m.probe.Connected() {
			m.setConnected(true, "")
			log.Printf("Monitor: reconnected after %d attempt(s)", attempt)
			return
		}

		if attempt%localCheckEvery == 1 {
			m.logLocalServer(attempt)
		}
		timer.Reset(m.reconnectDelay)
	}
}

func (m *Monitor) logLocalServer(attempt int) {
	if m.localServer == nil {
		log.Printf("Monitor: reconnect attempt %d failed", attempt)
		return
	}
	running, err := m.localServer()
	switch {
	case err != nil:
		log.Printf("Monitor: reconnect attempt %d failed (process check: %v)", attempt, err)
	case running:
		log.Printf("Monitor: reconnect attempt %d failed, local server process is running", attempt)
	default:
		log.Printf("Monitor: reconnect attempt %d failed, no local server process found", attempt)
	}
}
