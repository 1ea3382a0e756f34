package ws

import (
	"time"

	"github.com/mpdmon/backend/internal/monitor"
	"github.com/mpdmon/backend/internal/player"
)

type MessageType string

const (
	MsgHello    MessageType = "hello"
	MsgSnapshot MessageType = "snapshot"
	MsgEvents   MessageType = "events"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

type HelloPayload struct {
	ClientID string `json:"clientId"`
}

type SnapshotPayload struct {
	Player player.Snapshot `json:"player"`
	Health *monitor.Health `json:"health,omitempty"`
}

// EventsPayload batches the events seen during one throttle window, oldest
// first.
type EventsPayload struct {
	Events []Event `json:"events"`
}

// Category names one of the monitor's listener categories.
type Category string

const (
	CategoryPlayer     Category = "player"
	CategoryPlaylist   Category = "playlist"
	CategoryVolume     Category = "volume"
	CategoryOutput     Category = "output"
	CategoryError      Category = "error"
	CategoryConnection Category = "connection"
)

// Event is the wire form of a single monitor event. Data holds the event
// value for its category: a kind string for player and playlist events,
// otherwise the monitor's event struct.
type Event struct {
	Category Category    `json:"category"`
	Data     interface{} `json:"data"`
	At       time.Time   `json:"at"`
}
