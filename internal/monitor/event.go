package monitor

import "encoding/json"

// PlayerEvent classifies player changes.
type PlayerEvent int

const (
	PlayerStarted PlayerEvent = iota
	PlayerStopped
	PlayerPaused
	PlayerUnpaused
	PlayerBitrateChanged
)

var playerEventNames = map[PlayerEvent]string{
	PlayerStarted:        "started",
	PlayerStopped:        "stopped",
	PlayerPaused:         "paused",
	PlayerUnpaused:       "unpaused",
	PlayerBitrateChanged: "bitrate_changed",
}

func (e PlayerEvent) String() string {
	if n, ok := playerEventNames[e]; ok {
		return n
	}
	return "unknown"
}

func (e PlayerEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

// PlaylistEvent classifies playlist changes.
type PlaylistEvent int

const (
	PlaylistChanged PlaylistEvent = iota
	PlaylistSongAdded
	PlaylistSongDeleted
	PlaylistSongChanged
	PlaylistEnded
)

var playlistEventNames = map[PlaylistEvent]string{
	PlaylistChanged:     "changed",
	PlaylistSongAdded:   "song_added",
	PlaylistSongDeleted: "song_deleted",
	PlaylistSongChanged: "song_changed",
	PlaylistEnded:       "ended",
}

func (e PlaylistEvent) String() string {
	if n, ok := playlistEventNames[e]; ok {
		return n
	}
	return "unknown"
}

func (e PlaylistEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

// VolumeEvent carries the new volume (0-100).
type VolumeEvent struct {
	Volume int `json:"volume"`
}

// OutputEventKind classifies output changes.
type OutputEventKind int

const (
	OutputAdded OutputEventKind = iota
	OutputDeleted
	OutputChanged
)

var outputEventNames = map[OutputEventKind]string{
	OutputAdded:   "added",
	OutputDeleted: "deleted",
	OutputChanged: "changed",
}

func (k OutputEventKind) String() string {
	if n, ok := outputEventNames[k]; ok {
		return n
	}
	return "unknown"
}

func (k OutputEventKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// OutputEvent reports an output change. Output is only set for
// OutputChanged; added and deleted events do not name an output but carry
// the full list as fetched instead. Listeners share Outputs and must not
// modify it.
type OutputEvent struct {
	Kind    OutputEventKind `json:"kind"`
	Output  *Output         `json:"output,omitempty"`
	Outputs []Output        `json:"outputs,omitempty"`
}

// ErrorEvent carries the error text reported in the status reply.
type ErrorEvent struct {
	Message string `json:"message"`
}

// ConnectionEvent reports a change in reachability of the player.
type ConnectionEvent struct {
	Connected bool   `json:"connected"`
	Reason    string `json:"reason,omitempty"`
}

// Listener interfaces, one per event category. Listeners run synchronously
// on the monitor goroutine and should return quickly.

type PlayerListener interface {
	PlayerChanged(PlayerEvent)
}

type PlaylistListener interface {
	PlaylistChanged(PlaylistEvent)
}

type VolumeListener interface {
	VolumeChanged(VolumeEvent)
}

type OutputListener interface {
	OutputChanged(OutputEvent)
}

type ErrorListener interface {
	ErrorReceived(ErrorEvent)
}

type ConnectionListener interface {
	ConnectionChanged(ConnectionEvent)
}

// Func adapters so plain functions can be registered.

type PlayerListenerFunc func(PlayerEvent)

func (f PlayerListenerFunc) PlayerChanged(e PlayerEvent) { f(e) }

type PlaylistListenerFunc func(PlaylistEvent)

func (f PlaylistListenerFunc) PlaylistChanged(e PlaylistEvent) { f(e) }

type VolumeListenerFunc func(VolumeEvent)

func (f VolumeListenerFunc) VolumeChanged(e VolumeEvent) { f(e) }

type OutputListenerFunc func(OutputEvent)

func (f OutputListenerFunc) OutputChanged(e OutputEvent) { f(e) }

type ErrorListenerFunc func(ErrorEvent)

func (f ErrorListenerFunc) ErrorReceived(e ErrorEvent) { f(e) }

type ConnectionListenerFunc func(ConnectionEvent)

func (f ConnectionListenerFunc) ConnectionChanged(e ConnectionEvent) { f(e) }

// Listener is satisfied by types that want every category, such as stores
// and broadcasters mirroring the monitor.
type Listener interface {
	PlayerListener
	PlaylistListener
	VolumeListener
	OutputListener
	ErrorListener
	ConnectionListener
}
