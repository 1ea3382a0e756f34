package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mpdmon/backend/internal/config"
)

// DefaultPollInterval is used when the config leaves the interval unset.
const DefaultPollInterval = time.Second

// LocalServerCheck reports whether the player's server process is running
// on this machine. It is only consulted while reconnecting, for logging.
type LocalServerCheck func() (bool, error)

// PrimeFunc receives the baselines adopted before the first poll. outputs is
// nil if the output list could not be loaded.
type PrimeFunc func(status StatusSnapshot, outputs []Output)

// Monitor polls a player and turns differences between polls into events.
// The embedded Dispatcher is the listener registration API.
type Monitor struct {
	*Dispatcher

	status  StatusSource
	outputs OutputSource
	probe   ConnectionProbe

	pollInterval   time.Duration
	reconnectDelay time.Duration
	localServer    LocalServerCheck
	onPrime        PrimeFunc

	// Owned by the loop goroutine.
	det    *detector
	primed bool

	state  atomic.Int32 // PlayerState published for other goroutines
	health pollHealth

	mu      sync.Mutex // protects stopCh, done
	running atomic.Bool
	stopCh  chan struct{}
	done    chan struct{}
}

func NewMonitor(cfg config.MonitorConfig, status StatusSource, outputs OutputSource, probe ConnectionProbe) *Monitor {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	events := NewDispatcher()
	return &Monitor{
		Dispatcher:     events,
		status:         status,
		outputs:        outputs,
		probe:          probe,
		pollInterval:   interval,
		reconnectDelay: ReconnectDelay,
		det:            newDetector(events),
	}
}

// SetLocalServerCheck installs a check used to log whether a local server
// process exists while the connection is down. Must be called before Start.
func (m *Monitor) SetLocalServerCheck(check LocalServerCheck) {
	m.localServer = check
}

// OnPrime installs fn to be called on the monitor goroutine once the
// baselines are loaded, before the first poll and so before any event. It is
// not called if the initial status load fails. Must be called before Start.
func (m *Monitor) OnPrime(fn PrimeFunc) {
	m.onPrime = fn
}

// Start launches the poll loop on its own goroutine. Calling Start on a
// running monitor logs and does nothing. Cancelling ctx has the same effect
// as Stop.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running.Load() {
		log.Println("Monitor already running, ignoring start")
		return
	}

	prev := m.done
	stop := make(chan struct{})
	done := make(chan struct{})
	m.stopCh = stop
	m.done = done
	m.running.Store(true)

	go func() {
		// A previous loop may still be finishing its last poll.
		if prev != nil {
			<-prev
		}
		m.run(ctx, stop, done)
	}()
}

// Stop asks the loop to exit. It returns without waiting; the pending sleep
// is interrupted, but an in-flight poll runs to completion. Use Done to wait.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running.Load() {
		return
	}
	m.running.Store(false)
	close(m.stopCh)
}

// IsRunning reports whether the monitor has been started and not stopped.
func (m *Monitor) IsRunning() bool {
	return m.running.Load()
}

// Done returns a channel closed when the most recently started loop exits.
// It returns nil if the monitor was never started.
func (m *Monitor) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// PlayerState returns the last player state the monitor detected.
func (m *Monitor) PlayerState() PlayerState {
	return PlayerState(m.state.Load())
}

// Health returns a copy of the poll health counters.
func (m *Monitor) Health() Health {
	h := m.health.snapshot()
	h.Running = m.IsRunning()
	return h
}

func (m *Monitor) run(ctx context.Context, stop <-chan struct{}, done chan struct{}) {
	defer close(done)
	defer m.exited(stop)

	if !m.primed {
		m.prime()
		m.primed = true
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	log.Printf("Monitor started, polling every %s", m.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Monitor stopped")
			return
		case <-stop:
			log.Println("Monitor stopped")
			return
		default:
		}

		if err := m.poll(); err != nil {
			m.handlePollError(ctx, stop, err)
		} else {
			m.health.recordSuccess()
		}

		select {
		case <-ctx.Done():
			log.Println("Monitor stopped")
			return
		case <-stop:
			log.Println("Monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// exited clears the running flag when the loop ends on its own (context
// cancelled), unless a newer Start has already replaced this loop.
func (m *Monitor) exited(stop <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh == stop {
		m.running.Store(false)
	}
}

// prime loads the initial status and outputs as baselines so the first
// polls do not report the player's existing state as changes.
func (m *Monitor) prime() {
	lines, err := m.status.FetchStatus()
	if err != nil {
		log.Printf("Monitor: initial status load failed: %v", err)
		return
	}
	snap, err := ParseStatus(lines, m.det.cur)
	if err != nil {
		log.Printf("Monitor: initial status load failed: %v", err)
		return
	}
	m.det.adopt(snap)
	m.state.Store(int32(m.det.state))

	outputs, err := m.outputs.FetchOutputs()
	if err != nil {
		log.Printf("Monitor: initial output load failed: %v", err)
		outputs = nil
	} else {
		m.det.loadOutputs(outputs)
	}
	if m.onPrime != nil {
		m.onPrime(snap, outputs)
	}
}

// poll runs one fetch-parse-check cycle. Checks run in a fixed order; an
// error aborts the remaining checks of this cycle only.
func (m *Monitor) poll() error {
	lines, err := m.status.FetchStatus()
	if err != nil {
		return fmt.Errorf("fetching status: %w", err)
	}
	snap, err := ParseStatus(lines, m.det.cur)
	if err != nil {
		return err
	}
	m.det.cur = snap

	m.det.checkError()
	m.det.checkPlayer()
	m.state.Store(int32(m.det.state))
	m.det.checkPlaylist()
	m.det.checkTrackPosition(m.det.cur.Elapsed)
	m.det.checkVolume()
	m.det.checkBitrate()
	m.setConnected(m.probe.Connected(), "connection probe failed")
	if err := m.det.checkOutputs(m.outputs); err != nil {
		return fmt.Errorf("fetching outputs: %w", err)
	}
	return nil
}

// setConnected records a flip of the connection state in the health
// counters along with firing the event.
func (m *Monitor) setConnected(connected bool, reason string) {
	if !m.det.setConnected(connected, reason) {
		return
	}
	if connected {
		m.health.recordReconnect()
	} else {
		m.health.recordDisconnect()
	}
}

func (m *Monitor) handlePollError(ctx context.Context, stop <-chan struct{}, err error) {
	m.health.recordFailure(err)

	switch {
	case IsConnectionError(err):
		m.reconnect(ctx, stop, err)
	case IsResponseError(err):
		log.Printf("Monitor: skipping poll: %v", err)
	default:
		log.Printf("Monitor: poll failed: %v", err)
	}
}
