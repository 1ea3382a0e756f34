package monitor

import (
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// ListenerID identifies one listener registration. Registering the same
// listener twice yields two IDs and two deliveries per event.
type ListenerID uint64

type entry[L any] struct {
	id       ListenerID
	listener L
}

// registries holds one ordered slice per category. A registries value is
// never mutated in place once published; every change builds new slices.
type registries struct {
	player     []entry[PlayerListener]
	playlist   []entry[PlaylistListener]
	volume     []entry[VolumeListener]
	output     []entry[OutputListener]
	errors     []entry[ErrorListener]
	connection []entry[ConnectionListener]
}

// Dispatcher keeps the per-category listener registries and fans events out
// to them. Registration is safe from any goroutine; dispatch iterates a
// snapshot so listeners may add or remove registrations while being called.
type Dispatcher struct {
	mu     sync.RWMutex
	regs   registries
	nextID atomic.Uint64
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) newID() ListenerID {
	return ListenerID(d.nextID.Add(1))
}

func appendEntry[L any](list []entry[L], id ListenerID, l L) []entry[L] {
	out := make([]entry[L], len(list), len(list)+1)
	copy(out, list)
	return append(out, entry[L]{id: id, listener: l})
}

func removeEntry[L any](list []entry[L], id ListenerID) ([]entry[L], bool) {
	for i, e := range list {
		if e.id == id {
			out := make([]entry[L], 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...), true
		}
	}
	return list, false
}

func (d *Dispatcher) AddPlayerListener(l PlayerListener) ListenerID {
	id := d.newID()
	d.mu.Lock()
	d.regs.player = appendEntry(d.regs.player, id, l)
	d.mu.Unlock()
	return id
}

func (d *Dispatcher) AddPlaylistListener(l PlaylistListener) ListenerID {
	id := d.newID()
	d.mu.Lock()
	d.regs.playlist = appendEntry(d.regs.playlist, id, l)
	d.mu.Unlock()
	return id
}

func (d *Dispatcher) AddVolumeListener(l VolumeListener) ListenerID {
	id := d.newID()
	d.mu.Lock()
	d.regs.volume = appendEntry(d.regs.volume, id, l)
	d.mu.Unlock()
	return id
}

func (d *Dispatcher) AddOutputListener(l OutputListener) ListenerID {
	id := d.newID()
	d.mu.Lock()
	d.regs.output = appendEntry(d.regs.output, id, l)
	d.mu.Unlock()
	return id
}

func (d *Dispatcher) AddErrorListener(l ErrorListener) ListenerID {
	id := d.newID()
	d.mu.Lock()
	d.regs.errors = appendEntry(d.regs.errors, id, l)
	d.mu.Unlock()
	return id
}

func (d *Dispatcher) AddConnectionListener(l ConnectionListener) ListenerID {
	id := d.newID()
	d.mu.Lock()
	d.regs.connection = appendEntry(d.regs.connection, id, l)
	d.mu.Unlock()
	return id
}

// AddListener registers l in every category and returns the IDs in the
// order player, playlist, volume, output, error, connection.
func (d *Dispatcher) AddListener(l Listener) []ListenerID {
	return []ListenerID{
		d.AddPlayerListener(l),
		d.AddPlaylistListener(l),
		d.AddVolumeListener(l),
		d.AddOutputListener(l),
		d.AddErrorListener(l),
		d.AddConnectionListener(l),
	}
}

// RemoveListener drops the registration with the given ID. It reports
// whether a registration was found.
func (d *Dispatcher) RemoveListener(id ListenerID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ok bool
	if d.regs.player, ok = removeEntry(d.regs.player, id); ok {
		return true
	}
	if d.regs.playlist, ok = removeEntry(d.regs.playlist, id); ok {
		return true
	}
	if d.regs.volume, ok = removeEntry(d.regs.volume, id); ok {
		return true
	}
	if d.regs.output, ok = removeEntry(d.regs.output, id); ok {
		return true
	}
	if d.regs.errors, ok = removeEntry(d.regs.errors, id); ok {
		return true
	}
	d.regs.connection, ok = removeEntry(d.regs.connection, id)
	return ok
}

// ClearListeners replaces every registry with an empty one in a single step.
func (d *Dispatcher) ClearListeners() {
	d.mu.Lock()
	d.regs = registries{}
	d.mu.Unlock()
}

// ListenerCount returns the number of registrations across all categories.
func (d *Dispatcher) ListenerCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r := d.regs
	return len(r.player) + len(r.playlist) + len(r.volume) +
		len(r.output) + len(r.errors) + len(r.connection)
}

func (d *Dispatcher) snapshot() registries {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.regs
}

// deliver invokes call for each entry in order. A panic in one listener is
// logged and does not stop delivery to the rest.
func deliver[L any](category string, list []entry[L], call func(L)) {
	for _, e := range list {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("%s listener %d panicked: %v\n%s", category, e.id, r, debug.Stack())
				}
			}()
			call(e.listener)
		}()
	}
}

func (d *Dispatcher) firePlayer(ev PlayerEvent) {
	deliver("player", d.snapshot().player, func(l PlayerListener) { l.PlayerChanged(ev) })
}

func (d *Dispatcher) firePlaylist(ev PlaylistEvent) {
	deliver("playlist", d.snapshot().playlist, func(l PlaylistListener) { l.PlaylistChanged(ev) })
}

func (d *Dispatcher) fireVolume(volume int) {
	ev := VolumeEvent{Volume: volume}
	deliver("volume", d.snapshot().volume, func(l VolumeListener) { l.VolumeChanged(ev) })
}

func (d *Dispatcher) fireOutput(ev OutputEvent) {
	deliver("output", d.snapshot().output, func(l OutputListener) { l.OutputChanged(ev) })
}

func (d *Dispatcher) fireError(msg string) {
	ev := ErrorEvent{Message: msg}
	deliver("error", d.snapshot().errors, func(l ErrorListener) { l.ErrorReceived(ev) })
}

func (d *Dispatcher) fireConnection(connected bool, reason string) {
	ev := ConnectionEvent{Connected: connected, Reason: reason}
	deliver("connection", d.snapshot().connection, func(l ConnectionListener) { l.ConnectionChanged(ev) })
}
