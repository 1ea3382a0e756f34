package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mpdmon/backend/internal/monitor"
	"github.com/mpdmon/backend/internal/player"
)

// ErrTooManyConnections is returned by AddClient when the connection limit
// is reached.
var ErrTooManyConnections = errors.New("too many websocket connections")

const writeWait = 10 * time.Second

type client struct {
	id   string
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("ws client %s: write failed: %v", c.id, err)
			c.b.RemoveClient(c)
			// Drain until RemoveClient closes send.
			for range c.send {
			}
			return
		}
	}
}

// Broadcaster fans monitor events out to websocket clients. It implements
// monitor.Listener: events are batched and flushed at most once per
// throttle window, and a full snapshot goes out on every snapshot tick.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	maxConns int

	store    *player.Store
	health   func() monitor.Health
	throttle time.Duration

	snapshotTicker *time.Ticker
	stopCh         chan struct{}
	stopOnce       sync.Once

	flushMu    sync.Mutex
	pending    []Event
	flushTimer *time.Timer

	now func() time.Time
}

var _ monitor.Listener = (*Broadcaster)(nil)

func NewBroadcaster(store *player.Store, throttle, snapshotInterval time.Duration, maxConns int) *Broadcaster {
	b := &Broadcaster{
		clients:  make(map[*client]bool),
		maxConns: maxConns,
		store:    store,
		throttle: throttle,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}

	b.snapshotTicker = time.NewTicker(snapshotInterval)
	go b.snapshotLoop()

	return b
}

// SetHealthSource adds monitor health to snapshots. Must be called before
// clients connect.
func (b *Broadcaster) SetHealthSource(fn func() monitor.Health) {
	b.health = fn
}

// Stop ends the snapshot loop, cancels a pending flush and disconnects all
// clients.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		b.snapshotTicker.Stop()
		close(b.stopCh)

		b.flushMu.Lock()
		if b.flushTimer != nil {
			b.flushTimer.Stop()
			b.flushTimer = nil
		}
		b.pending = nil
		b.flushMu.Unlock()

		b.mu.Lock()
		for c := range b.clients {
			delete(b.clients, c)
			close(c.send)
		}
		b.mu.Unlock()
	})
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		b:    b,
		send: make(chan []byte, 64),
	}

	b.mu.Lock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		b.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	b.clients[c] = true
	b.mu.Unlock()

	go c.writePump()

	for _, msg := range []WSMessage{
		{Type: MsgHello, Payload: HelloPayload{ClientID: c.id}},
		b.snapshotMessage(),
	} {
		data, err := json.Marshal(msg)
		if err != nil {
			log.Printf("ws marshal error: %v", err)
			continue
		}
		b.send(c, data)
	}

	return c, nil
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) queue(cat Category, data interface{}) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	select {
	case <-b.stopCh:
		return
	default:
	}

	b.pending = append(b.pending, Event{Category: cat, Data: data, At: b.now()})

	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

func (b *Broadcaster) flush() {
	b.flushMu.Lock()
	events := b.pending
	b.pending = nil
	b.flushTimer = nil
	b.flushMu.Unlock()

	if len(events) == 0 {
		return
	}

	b.broadcast(WSMessage{
		Type:    MsgEvents,
		Payload: EventsPayload{Events: events},
	})
}

func (b *Broadcaster) PlayerChanged(e monitor.PlayerEvent)     { b.queue(CategoryPlayer, e) }
func (b *Broadcaster) PlaylistChanged(e monitor.PlaylistEvent) { b.queue(CategoryPlaylist, e) }
func (b *Broadcaster) VolumeChanged(e monitor.VolumeEvent)     { b.queue(CategoryVolume, e) }
func (b *Broadcaster) OutputChanged(e monitor.OutputEvent)     { b.queue(CategoryOutput, e) }
func (b *Broadcaster) ErrorReceived(e monitor.ErrorEvent)      { b.queue(CategoryError, e) }

func (b *Broadcaster) ConnectionChanged(e monitor.ConnectionEvent) {
	b.queue(CategoryConnection, e)
}

func (b *Broadcaster) snapshotMessage() WSMessage {
	payload := SnapshotPayload{Player: b.store.Snapshot()}
	if b.health != nil {
		h := b.health()
		payload.Health = &h
	}
	return WSMessage{Type: MsgSnapshot, Payload: payload}
}

func (b *Broadcaster) snapshotLoop() {
	for {
		select {
		case <-b.stopCh:
			return
		case <-b.snapshotTicker.C:
			b.broadcast(b.snapshotMessage())
		}
	}
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		b.send(c, data)
	}
}

// send delivers data to c unless c was removed concurrently. A client whose
// buffer is full is disconnected.
func (b *Broadcaster) send(c *client, data []byte) {
	b.mu.RLock()
	if !b.clients[c] {
		b.mu.RUnlock()
		return
	}
	select {
	case c.send <- data:
		b.mu.RUnlock()
		return
	default:
	}
	b.mu.RUnlock()

	log.Printf("ws client %s too slow, disconnecting", c.id)
	b.RemoveClient(c)
}
