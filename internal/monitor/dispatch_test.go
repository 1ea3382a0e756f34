package monitor

import (
	"sync"
	"testing"
)

func TestDispatcherOrderAndDuplicates(t *testing.T) {
	d := NewDispatcher()
	var got []string

	first := PlayerListenerFunc(func(e PlayerEvent) { got = append(got, "first:"+e.String()) })
	second := PlayerListenerFunc(func(e PlayerEvent) { got = append(got, "second:"+e.String()) })

	d.AddPlayerListener(first)
	d.AddPlayerListener(second)
	d.AddPlayerListener(first)

	d.firePlayer(PlayerStarted)

	assertEvents(t, got, "first:started", "second:started", "first:started")
}

func TestDispatcherRemoveListener(t *testing.T) {
	d := NewDispatcher()
	var got []int

	keep := VolumeListenerFunc(func(e VolumeEvent) { got = append(got, e.Volume) })
	drop := VolumeListenerFunc(func(e VolumeEvent) { got = append(got, -e.Volume) })

	d.AddVolumeListener(keep)
	id := d.AddVolumeListener(drop)

	if !d.RemoveListener(id) {
		t.Fatal("RemoveListener() = false for a registered id")
	}
	if d.RemoveListener(id) {
		t.Error("RemoveListener() = true for an id already removed")
	}

	d.fireVolume(30)
	if len(got) != 1 || got[0] != 30 {
		t.Errorf("deliveries = %v, want [30]", got)
	}
}

func TestDispatcherRemoveOnlyThatRegistration(t *testing.T) {
	d := NewDispatcher()
	count := 0
	l := ErrorListenerFunc(func(ErrorEvent) { count++ })

	id := d.AddErrorListener(l)
	d.AddErrorListener(l)
	d.RemoveListener(id)

	d.fireError("x")
	if count != 1 {
		t.Errorf("deliveries = %d, want 1 after removing one of two registrations", count)
	}
}

func TestDispatcherClearListeners(t *testing.T) {
	d := NewDispatcher()
	rec := &recorder{}
	ids := d.AddListener(rec)
	if len(ids) != 6 {
		t.Fatalf("AddListener() returned %d ids, want 6", len(ids))
	}
	if n := d.ListenerCount(); n != 6 {
		t.Fatalf("ListenerCount() = %d, want 6", n)
	}

	d.ClearListeners()

	if n := d.ListenerCount(); n != 0 {
		t.Errorf("ListenerCount() after clear = %d, want 0", n)
	}
	d.firePlayer(PlayerStopped)
	d.firePlaylist(PlaylistChanged)
	d.fireVolume(1)
	d.fireOutput(OutputEvent{Kind: OutputAdded})
	d.fireError("e")
	d.fireConnection(false, "down")
	assertEvents(t, rec.get())
}

func TestDispatcherIsolatesPanics(t *testing.T) {
	d := NewDispatcher()
	var got []string

	d.AddPlaylistListener(PlaylistListenerFunc(func(e PlaylistEvent) { got = append(got, "before") }))
	d.AddPlaylistListener(PlaylistListenerFunc(func(e PlaylistEvent) { panic("listener bug") }))
	d.AddPlaylistListener(PlaylistListenerFunc(func(e PlaylistEvent) { got = append(got, "after") }))

	d.firePlaylist(PlaylistSongChanged)

	assertEvents(t, got, "before", "after")
}

func TestDispatcherListenerMayUnregisterDuringDispatch(t *testing.T) {
	d := NewDispatcher()
	calls := 0
	var id ListenerID
	id = d.AddConnectionListener(ConnectionListenerFunc(func(ConnectionEvent) {
		calls++
		d.RemoveListener(id)
	}))

	d.fireConnection(false, "a")
	d.fireConnection(true, "")

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDispatcherConcurrentRegistration(t *testing.T) {
	d := NewDispatcher()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := d.AddOutputListener(OutputListenerFunc(func(OutputEvent) {}))
				d.fireOutput(OutputEvent{Kind: OutputDeleted})
				d.RemoveListener(id)
			}
		}()
	}
	wg.Wait()

	if n := d.ListenerCount(); n != 0 {
		t.Errorf("ListenerCount() = %d, want 0", n)
	}
}

func TestOutputEventCarriesOutput(t *testing.T) {
	d := NewDispatcher()
	var got OutputEvent
	d.AddOutputListener(OutputListenerFunc(func(e OutputEvent) { got = e }))

	d.fireOutput(OutputEvent{Kind: OutputChanged, Output: &Output{ID: 3, Name: "hdmi"}})

	if got.Kind != OutputChanged || got.Output == nil || got.Output.ID != 3 {
		t.Errorf("event = %+v", got)
	}
}
