package monitor

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mpdmon/backend/internal/config"
)

var errBoom = errors.New("boom")

// fakeSource serves canned replies. The test goroutine mutates it while the
// monitor goroutine reads it, so every field is guarded by mu.
type fakeSource struct {
	mu          sync.Mutex
	status      StatusSnapshot
	outputs     []Output
	statusErr   error
	outputsErr  error
	connected   bool
	probeFails  int // Connected() answers false this many more times
	statusCalls int
	outputCalls int
	polled      chan struct{}
}

func newFakeSource(s StatusSnapshot, outputs ...Output) *fakeSource {
	return &fakeSource{
		status:    s,
		outputs:   outputs,
		connected: true,
		polled:    make(chan struct{}, 64),
	}
}

func (f *fakeSource) FetchStatus() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	select {
	case f.polled <- struct{}{}:
	default:
	}
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return replyFor(f.status), nil
}

func (f *fakeSource) FetchOutputs() ([]Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputCalls++
	if f.outputsErr != nil {
		return nil, f.outputsErr
	}
	out := make([]Output, len(f.outputs))
	copy(out, f.outputs)
	return out, nil
}

func (f *fakeSource) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.probeFails > 0 {
		f.probeFails--
		return false
	}
	return f.connected
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeSource) calls() (status, outputs int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls, f.outputCalls
}

// replyFor renders a snapshot the way a server would send it. Song fields
// are omitted when negative, as a stopped server with an empty queue does.
func replyFor(s StatusSnapshot) []string {
	lines := []string{
		"volume: " + strconv.Itoa(s.Volume),
		"playlist: " + strconv.Itoa(s.PlaylistVersion),
		"playlistlength: " + strconv.Itoa(s.PlaylistLength),
		"state: " + s.State,
	}
	if s.SongIndex >= 0 {
		lines = append(lines, "song: "+strconv.Itoa(s.SongIndex))
	}
	if s.SongID >= 0 {
		lines = append(lines, "songid: "+strconv.Itoa(s.SongID))
	}
	lines = append(lines,
		fmt.Sprintf("time: %d:300", s.Elapsed),
		"bitrate: "+strconv.Itoa(s.Bitrate),
	)
	if s.Error != "" {
		lines = append(lines, "error: "+s.Error)
	}
	return lines
}

func playingSnapshot() StatusSnapshot {
	return StatusSnapshot{
		Volume:          50,
		PlaylistVersion: 10,
		PlaylistLength:  5,
		SongIndex:       1,
		SongID:          11,
		Elapsed:         42,
		Bitrate:         320,
		State:           "play",
	}
}

// recorder collects every event as a short string.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.events = append(r.events, s)
	r.mu.Unlock()
}

func (r *recorder) PlayerChanged(e PlayerEvent)     { r.add("player:" + e.String()) }
func (r *recorder) PlaylistChanged(e PlaylistEvent) { r.add("playlist:" + e.String()) }
func (r *recorder) VolumeChanged(e VolumeEvent)     { r.add("volume:" + strconv.Itoa(e.Volume)) }
func (r *recorder) ErrorReceived(e ErrorEvent)      { r.add("error:" + e.Message) }

func (r *recorder) OutputChanged(e OutputEvent) {
	s := "output:" + e.Kind.String()
	if e.Output != nil {
		s += ":" + strconv.Itoa(e.Output.ID)
	}
	r.add(s)
}

func (r *recorder) ConnectionChanged(e ConnectionEvent) {
	r.add("connection:" + strconv.FormatBool(e.Connected))
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *recorder) count(event string) int {
	n := 0
	for _, e := range r.get() {
		if e == event {
			n++
		}
	}
	return n
}

// newTestMonitor wires a monitor to src with a long poll interval and a
// short reconnect delay, plus a recorder on every category.
func newTestMonitor(src *fakeSource) (*Monitor, *recorder) {
	m := NewMonitor(config.MonitorConfig{PollInterval: time.Hour}, src, src, src)
	m.reconnectDelay = time.Millisecond
	rec := &recorder{}
	m.AddListener(rec)
	return m, rec
}

func assertEvents(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
