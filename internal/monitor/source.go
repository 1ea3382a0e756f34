package monitor

import (
	"errors"
	"fmt"
)

// StatusSource provides a fresh status reply from the player on demand.
//
// Implementations are only called from the monitor poll goroutine and do not
// need to be safe for concurrent use.
type StatusSource interface {
	// FetchStatus returns the raw "key: value" lines of a status reply, in
	// the order the server sent them. A transport failure must be reported
	// as a *ConnectionError and a malformed or rejected reply as a
	// *ResponseError.
	FetchStatus() ([]string, error)
}

// OutputSource provides the current list of audio outputs.
type OutputSource interface {
	// FetchOutputs returns the outputs in server order. Failure modes are
	// the same as StatusSource.FetchStatus.
	FetchOutputs() ([]Output, error)
}

// ConnectionProbe reports whether the player is reachable. Implementations
// may try to re-establish a dropped connection before answering.
type ConnectionProbe interface {
	Connected() bool
}

// Output is a single audio output as reported by the player.
type Output struct {
	ID      int    `json:"id"`
	Enabled bool   `json:"enabled"`
	Name    string `json:"name"`
}

// ConnectionError reports that the transport to the player is down.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection lost during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ResponseError reports a malformed or rejected reply.
type ResponseError struct {
	Op  string
	Err error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("bad response to %s: %v", e.Op, e.Err)
}

func (e *ResponseError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err (or anything it wraps) is a
// *ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsResponseError reports whether err (or anything it wraps) is a
// *ResponseError.
func IsResponseError(err error) bool {
	var re *ResponseError
	return errors.As(err, &re)
}
