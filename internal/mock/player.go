// Package mock simulates an MPD server for demos and tests without a real
// player.
package mock

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"

	"github.com/mpdmon/backend/internal/monitor"
)

var errOutage = errors.New("simulated outage")

const songLength = 30 // seconds of simulated playback per song

var bitrates = []int{128, 192, 256, 320}

// Options tunes the simulation.
type Options struct {
	Seed int64
	// Outages lets the player drop off the network now and then.
	Outages bool
}

// Player implements monitor.StatusSource, monitor.OutputSource and
// monitor.ConnectionProbe. Every status fetch advances the simulation one
// step.
type Player struct {
	mu  sync.Mutex
	rng *rand.Rand

	outages bool
	outage  int // failed probes left in the current outage

	state    string
	volume   int
	version  int
	playlist []int // song ids in queue order
	nextID   int
	song     int // index into playlist, -1 when none
	elapsed  int
	bitrate  int
	errMsg   string

	outputs []monitor.Output
	steps   int
}

func NewPlayer(opts Options) *Player {
	p := &Player{
		rng:     rand.New(rand.NewSource(opts.Seed)),
		outages: opts.Outages,
		state:   "play",
		volume:  60,
		version: 1,
		song:    0,
		bitrate: 256,
		outputs: []monitor.Output{
			{ID: 0, Name: "Speakers", Enabled: true},
			{ID: 1, Name: "HTTP Stream", Enabled: false},
		},
	}
	for i := 0; i < 8; i++ {
		p.nextID++
		p.playlist = append(p.playlist, p.nextID)
	}
	return p
}

// StartOutage makes the next n probes fail, along with every fetch until the
// outage is over.
func (p *Player) StartOutage(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outage = n
}

// Steps returns how many successful status fetches have advanced the
// simulation.
func (p *Player) Steps() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.steps
}

func (p *Player) FetchStatus() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.outage > 0 {
		return nil, &monitor.ConnectionError{Op: "status", Err: errOutage}
	}
	p.advance()
	p.steps++
	return p.statusLines(), nil
}

func (p *Player) FetchOutputs() ([]monitor.Output, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.outage > 0 {
		return nil, &monitor.ConnectionError{Op: "outputs", Err: errOutage}
	}
	out := make([]monitor.Output, len(p.outputs))
	copy(out, p.outputs)
	return out, nil
}

func (p *Player) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.outage > 0 {
		p.outage--
		return false
	}
	return true
}

func (p *Player) statusLines() []string {
	lines := []string{
		"volume: " + strconv.Itoa(p.volume),
		"playlist: " + strconv.Itoa(p.version),
		"playlistlength: " + strconv.Itoa(len(p.playlist)),
		"state: " + p.state,
	}
	if p.song >= 0 {
		lines = append(lines,
			"song: "+strconv.Itoa(p.song),
			"songid: "+strconv.Itoa(p.playlist[p.song]),
		)
	}
	if p.state != "stop" {
		lines = append(lines,
			fmt.Sprintf("time: %d:%d", p.elapsed, songLength),
			"bitrate: "+strconv.Itoa(p.bitrate),
		)
	}
	if p.errMsg != "" {
		lines = append(lines, "error: "+p.errMsg)
	}
	return lines
}

func (p *Player) advance() {
	p.advancePlayback()
	p.advanceVolume()
	p.advancePlaylist()
	p.advanceOutputs()
	p.advanceError()

	if p.outages && p.rng.Float64() < 0.005 {
		p.outage = 3 + p.rng.Intn(4)
	}
}

func (p *Player) advancePlayback() {
	switch p.state {
	case "play":
		p.elapsed++
		if p.elapsed >= songLength {
			p.nextSong()
			return
		}
		switch r := p.rng.Float64(); {
		case r < 0.04:
			p.state = "pause"
		case r < 0.05:
			p.stop()
		case r < 0.15:
			p.bitrate = bitrates[p.rng.Intn(len(bitrates))]
		}
	case "pause":
		if p.rng.Float64() < 0.25 {
			p.state = "play"
		}
	case "stop":
		if len(p.playlist) > 0 && p.rng.Float64() < 0.2 {
			p.state = "play"
			p.song = 0
			p.elapsed = 0
		}
	}
}

func (p *Player) nextSong() {
	p.elapsed = 0
	if p.song+1 >= len(p.playlist) {
		p.stop()
		return
	}
	p.song++
}

// stop leaves the queue without a current song, as a server does once the
// last song has finished.
func (p *Player) stop() {
	p.state = "stop"
	p.song = -1
	p.elapsed = 0
}

func (p *Player) advanceVolume() {
	if p.rng.Float64() >= 0.08 {
		return
	}
	p.volume += p.rng.Intn(21) - 10
	if p.volume < 0 {
		p.volume = 0
	}
	if p.volume > 100 {
		p.volume = 100
	}
}

func (p *Player) advancePlaylist() {
	switch r := p.rng.Float64(); {
	case r < 0.04:
		p.nextID++
		p.playlist = append(p.playlist, p.nextID)
		p.version++
	case r < 0.06 && len(p.playlist) > 1:
		i := p.rng.Intn(len(p.playlist))
		p.playlist = append(p.playlist[:i], p.playlist[i+1:]...)
		p.version++
		switch {
		case p.song == i:
			p.elapsed = 0
			if p.song >= len(p.playlist) {
				p.stop()
			}
		case p.song > i:
			p.song--
		}
	}
}

func (p *Player) advanceOutputs() {
	switch r := p.rng.Float64(); {
	case r < 0.03:
		i := p.rng.Intn(len(p.outputs))
		p.outputs[i].Enabled = !p.outputs[i].Enabled
	case r < 0.04:
		id := p.outputs[len(p.outputs)-1].ID + 1
		p.outputs = append(p.outputs, monitor.Output{
			ID:   id,
			Name: "Zone " + strconv.Itoa(id),
		})
	case r < 0.05 && len(p.outputs) > 2:
		p.outputs = p.outputs[:len(p.outputs)-1]
	}
}

func (p *Player) advanceError() {
	if p.errMsg != "" {
		if p.rng.Float64() < 0.3 {
			p.errMsg = ""
		}
		return
	}
	if p.rng.Float64() < 0.01 {
		p.errMsg = "simulated decoder failure"
	}
}
