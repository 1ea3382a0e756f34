package monitor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PlayerState is the coarse playback state derived from the status reply.
type PlayerState int

const (
	StateStopped PlayerState = iota
	StatePlaying
	StatePaused
)

var playerStateNames = map[PlayerState]string{
	StateStopped: "stopped",
	StatePlaying: "playing",
	StatePaused:  "paused",
}

func (s PlayerState) String() string {
	if n, ok := playerStateNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s PlayerState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// playerStateFromString maps the "state" field by prefix. Anything that is
// not play or pause counts as stopped.
func playerStateFromString(state string) PlayerState {
	switch {
	case strings.HasPrefix(state, "play"):
		return StatePlaying
	case strings.HasPrefix(state, "pause"):
		return StatePaused
	default:
		return StateStopped
	}
}

// StatusSnapshot is the typed view of one status reply.
type StatusSnapshot struct {
	Volume          int
	PlaylistVersion int
	PlaylistLength  int
	SongIndex       int
	SongID          int
	Elapsed         int64 // whole seconds
	Bitrate         int
	State           string
	Error           string
}

// PlayerState derives the playback state from the raw state string.
func (s StatusSnapshot) PlayerState() PlayerState {
	return playerStateFromString(s.State)
}

// Status reply keys. The trailing colon keeps "playlist:" from matching
// "playlistlength:".
const (
	keyVolume         = "volume:"
	keyPlaylist       = "playlist:"
	keyPlaylistLength = "playlistlength:"
	keyState          = "state:"
	keySong           = "song:"
	keySongID         = "songid:"
	keyTime           = "time:"
	keyBitrate        = "bitrate:"
	keyError          = "error:"
)

// ParseStatus builds a snapshot from raw status lines. Fields missing from
// the reply carry over from prev, except the current song index and id
// (which fall back to -1) and the error message (cleared).
func ParseStatus(lines []string, prev StatusSnapshot) (StatusSnapshot, error) {
	s := prev
	s.SongIndex = -1
	s.SongID = -1
	s.Error = ""

	for _, line := range lines {
		var err error
		switch {
		case strings.HasPrefix(line, keyVolume):
			s.Volume, err = parseIntField(line, keyVolume)
		case strings.HasPrefix(line, keyPlaylistLength):
			s.PlaylistLength, err = parseIntField(line, keyPlaylistLength)
		case strings.HasPrefix(line, keyPlaylist):
			s.PlaylistVersion, err = parseIntField(line, keyPlaylist)
		case strings.HasPrefix(line, keyState):
			s.State = fieldValue(line, keyState)
		case strings.HasPrefix(line, keySongID):
			s.SongID, err = parseIntField(line, keySongID)
		case strings.HasPrefix(line, keySong):
			s.SongIndex, err = parseIntField(line, keySong)
		case strings.HasPrefix(line, keyTime):
			// "elapsed:total"
			elapsed, _, _ := strings.Cut(fieldValue(line, keyTime), ":")
			s.Elapsed, err = strconv.ParseInt(elapsed, 10, 64)
		case strings.HasPrefix(line, keyBitrate):
			s.Bitrate, err = parseIntField(line, keyBitrate)
		case strings.HasPrefix(line, keyError):
			s.Error = fieldValue(line, keyError)
		}
		if err != nil {
			return prev, &ResponseError{Op: "status", Err: fmt.Errorf("line %q: %w", line, err)}
		}
	}
	return s, nil
}

func fieldValue(line, key string) string {
	return strings.TrimSpace(line[len(key):])
}

func parseIntField(line, key string) (int, error) {
	return strconv.Atoi(fieldValue(line, key))
}
