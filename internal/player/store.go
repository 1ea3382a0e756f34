// Package player keeps the last known picture of the monitored server,
// assembled from monitor events.
package player

import (
	"sort"
	"sync"
	"time"

	"github.com/mpdmon/backend/internal/monitor"
)

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	State     monitor.PlayerState `json:"state"`
	Volume    int                 `json:"volume"`
	Connected bool                `json:"connected"`
	LastError string              `json:"lastError,omitempty"`
	// Reason the connection was last lost; empty while connected.
	DisconnectReason string           `json:"disconnectReason,omitempty"`
	Outputs          []monitor.Output `json:"outputs"`

	SongChanges     int `json:"songChanges"`
	PlaylistChanges int `json:"playlistChanges"`
	BitrateChanges  int `json:"bitrateChanges"`
	Events          int `json:"events"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Store implements monitor.Listener. It is written from the monitor
// goroutine and read from HTTP handlers.
type Store struct {
	mu      sync.RWMutex
	snap    Snapshot
	outputs map[int]monitor.Output
	now     func() time.Time
}

var _ monitor.Listener = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		snap:    Snapshot{Connected: true, Volume: -1},
		outputs: make(map[int]monitor.Output),
		now:     time.Now,
	}
}

// Seed sets the values events cannot carry, such as the volume and output
// list read before the first event.
func (s *Store) Seed(state monitor.PlayerState, volume int, outputs []monitor.Output) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.State = state
	s.snap.Volume = volume
	s.outputs = make(map[int]monitor.Output, len(outputs))
	for _, o := range outputs {
		s.outputs[o.ID] = o
	}
	s.snap.UpdatedAt = s.now()
}

// Snapshot returns a copy that is safe to retain.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	snap.Outputs = make([]monitor.Output, 0, len(s.outputs))
	for _, o := range s.outputs {
		snap.Outputs = append(snap.Outputs, o)
	}
	sort.Slice(snap.Outputs, func(i, j int) bool { return snap.Outputs[i].ID < snap.Outputs[j].ID })
	return snap
}

func (s *Store) update(fn func(snap *Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snap)
	s.snap.Events++
	s.snap.UpdatedAt = s.now()
}

func (s *Store) PlayerChanged(e monitor.PlayerEvent) {
	s.update(func(snap *Snapshot) {
		switch e {
		case monitor.PlayerStarted, monitor.PlayerUnpaused:
			snap.State = monitor.StatePlaying
		case monitor.PlayerPaused:
			snap.State = monitor.StatePaused
		case monitor.PlayerStopped:
			snap.State = monitor.StateStopped
		case monitor.PlayerBitrateChanged:
			snap.BitrateChanges++
		}
	})
}

func (s *Store) PlaylistChanged(e monitor.PlaylistEvent) {
	s.update(func(snap *Snapshot) {
		switch e {
		case monitor.PlaylistSongChanged:
			snap.SongChanges++
		case monitor.PlaylistChanged:
			snap.PlaylistChanges++
		}
	})
}

func (s *Store) VolumeChanged(e monitor.VolumeEvent) {
	s.update(func(snap *Snapshot) { snap.Volume = e.Volume })
}

// OutputChanged patches one output on a change and replaces the list on an
// add or delete.
func (s *Store) OutputChanged(e monitor.OutputEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case e.Kind == monitor.OutputChanged && e.Output != nil:
		s.outputs[e.Output.ID] = *e.Output
	case e.Kind != monitor.OutputChanged && e.Outputs != nil:
		s.outputs = make(map[int]monitor.Output, len(e.Outputs))
		for _, o := range e.Outputs {
			s.outputs[o.ID] = o
		}
	}
	s.snap.Events++
	s.snap.UpdatedAt = s.now()
}

func (s *Store) ErrorReceived(e monitor.ErrorEvent) {
	s.update(func(snap *Snapshot) { snap.LastError = e.Message })
}

func (s *Store) ConnectionChanged(e monitor.ConnectionEvent) {
	s.update(func(snap *Snapshot) {
		snap.Connected = e.Connected
		snap.DisconnectReason = e.Reason
		if e.Connected {
			snap.DisconnectReason = ""
		}
	})
}
