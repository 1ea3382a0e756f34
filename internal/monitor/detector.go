package monitor

// Debounce thresholds, in polls. A category is compared against its baseline
// only on every Nth poll.
const (
	volumeCheckEvery   = 6
	playlistCheckEvery = 3
	bitrateCheckEvery  = 8
	outputCheckEvery   = 4
)

// debounce counts polls and trips once every threshold calls. The counter
// returns to zero on the call that trips, so it never exceeds threshold.
type debounce struct {
	count     int
	threshold int
}

func (d *debounce) tick() bool {
	d.count++
	if d.count >= d.threshold {
		d.count = 0
		return true
	}
	return false
}

// baseline holds the last reported value of every debounced field.
type baseline struct {
	volume          int
	playlistVersion int
	playlistLength  int
	songIndex       int
	songID          int
	bitrate         int
}

// detector compares the latest snapshot with the baselines and fires events
// through the dispatcher. It is owned by the monitor goroutine.
type detector struct {
	events *Dispatcher

	cur     StatusSnapshot
	old     baseline
	state   PlayerState
	outputs map[int]Output

	connected bool

	volumeCheck   debounce
	playlistCheck debounce
	bitrateCheck  debounce
	outputCheck   debounce
}

func newDetector(events *Dispatcher) *detector {
	return &detector{
		events:        events,
		cur:           StatusSnapshot{SongIndex: -1, SongID: -1},
		old:           baseline{songIndex: -1, songID: -1},
		state:         StateStopped,
		outputs:       make(map[int]Output),
		connected:     true,
		volumeCheck:   debounce{threshold: volumeCheckEvery},
		playlistCheck: debounce{threshold: playlistCheckEvery},
		bitrateCheck:  debounce{threshold: bitrateCheckEvery},
		outputCheck:   debounce{threshold: outputCheckEvery},
	}
}

// adopt makes s the current snapshot and every baseline, without firing.
func (d *detector) adopt(s StatusSnapshot) {
	d.cur = s
	d.state = s.PlayerState()
	d.old = baseline{
		volume:          s.Volume,
		playlistVersion: s.PlaylistVersion,
		playlistLength:  s.PlaylistLength,
		songIndex:       s.SongIndex,
		songID:          s.SongID,
		bitrate:         s.Bitrate,
	}
}

func (d *detector) checkError() {
	if d.cur.Error != "" {
		d.events.fireError(d.cur.Error)
	}
}

func (d *detector) checkPlayer() {
	next := d.cur.PlayerState()
	if next == d.state {
		return
	}

	switch next {
	case StatePlaying:
		switch d.state {
		case StatePaused:
			d.events.firePlayer(PlayerUnpaused)
		case StateStopped:
			d.events.firePlayer(PlayerStarted)
		}
	case StateStopped:
		// A stopped player reports no time, so elapsed reads as zero.
		d.cur.Elapsed = 0
		d.events.firePlayer(PlayerStopped)
		if d.cur.SongID == -1 {
			d.events.firePlaylist(PlaylistEnded)
		}
	case StatePaused:
		switch d.state {
		case StatePaused:
			// Unreachable behind the equality check above; kept so the
			// transition table stays complete.
			d.events.firePlayer(PlayerUnpaused)
		case StatePlaying:
			d.events.firePlayer(PlayerPaused)
		}
	}
	d.state = next
}

func (d *detector) checkPlaylist() {
	if !d.playlistCheck.tick() {
		return
	}

	if d.old.playlistVersion != d.cur.PlaylistVersion {
		d.events.firePlaylist(PlaylistChanged)
		d.old.playlistVersion = d.cur.PlaylistVersion
	}

	if d.old.playlistLength != d.cur.PlaylistLength {
		if d.old.playlistLength < d.cur.PlaylistLength {
			d.events.firePlaylist(PlaylistSongAdded)
		} else {
			d.events.firePlaylist(PlaylistSongDeleted)
		}
		d.old.playlistLength = d.cur.PlaylistLength
	}

	if d.state == StatePlaying {
		if d.old.songIndex != d.cur.SongIndex {
			d.events.firePlaylist(PlaylistSongChanged)
			d.old.songIndex = d.cur.SongIndex
		} else if d.old.songID != d.cur.SongID {
			d.events.firePlaylist(PlaylistSongChanged)
			d.old.songID = d.cur.SongID
		}
	}
}

// checkTrackPosition has no effect; seek detection is not implemented.
func (d *detector) checkTrackPosition(elapsed int64) {}

func (d *detector) checkVolume() {
	if !d.volumeCheck.tick() {
		return
	}
	if d.old.volume != d.cur.Volume {
		d.events.fireVolume(d.cur.Volume)
		d.old.volume = d.cur.Volume
	}
}

func (d *detector) checkBitrate() {
	if !d.bitrateCheck.tick() {
		return
	}
	if d.old.bitrate != d.cur.Bitrate {
		d.events.firePlayer(PlayerBitrateChanged)
		d.old.bitrate = d.cur.Bitrate
	}
}

// setConnected fires a connection event only when the state flips, so an
// outage is reported once however many polls or probes observe it. It
// reports whether the state flipped.
func (d *detector) setConnected(connected bool, reason string) bool {
	if connected == d.connected {
		return false
	}
	d.connected = connected
	if connected {
		reason = ""
	}
	d.events.fireConnection(connected, reason)
	return true
}

func (d *detector) checkOutputs(src OutputSource) error {
	if !d.outputCheck.tick() {
		return nil
	}

	outputs, err := src.FetchOutputs()
	if err != nil {
		return err
	}

	switch {
	case len(outputs) > len(d.outputs):
		d.events.fireOutput(OutputEvent{Kind: OutputAdded, Outputs: outputs})
		d.loadOutputs(outputs)
	case len(outputs) < len(d.outputs):
		d.events.fireOutput(OutputEvent{Kind: OutputDeleted, Outputs: outputs})
		d.loadOutputs(outputs)
	default:
		for _, out := range outputs {
			cached, ok := d.outputs[out.ID]
			if !ok || cached.Enabled != out.Enabled {
				changed := out
				d.events.fireOutput(OutputEvent{Kind: OutputChanged, Output: &changed})
				d.loadOutputs(outputs)
				return nil
			}
		}
	}
	return nil
}

// loadOutputs replaces the cache with exactly the given outputs.
func (d *detector) loadOutputs(outputs []Output) {
	d.outputs = make(map[int]Output, len(outputs))
	for _, out := range outputs {
		d.outputs[out.ID] = out
	}
}
