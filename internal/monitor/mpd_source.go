package monitor

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"

	"github.com/fhs/gompd/v2/mpd"
)

// MPDSource talks to an MPD server through a single persistent client. It
// implements StatusSource, OutputSource and ConnectionProbe. The client is
// dialled lazily and dropped on any transport failure; the next call dials
// again.
//
// Like the other sources it is driven from the monitor goroutine only.
type MPDSource struct {
	network  string
	addr     string
	password string

	client *mpd.Client
}

// NewMPDSource returns a source for the server at addr. network is "tcp" or
// "unix". An empty password skips authentication.
func NewMPDSource(network, addr, password string) *MPDSource {
	return &MPDSource{network: network, addr: addr, password: password}
}

func (s *MPDSource) connect() (*mpd.Client, error) {
	if s.client != nil {
		return s.client, nil
	}
	c, err := mpd.DialAuthenticated(s.network, s.addr, s.password)
	if err != nil {
		// A rejected password still leaves an open connection behind.
		if c != nil {
			c.Close()
		}
		return nil, &ConnectionError{Op: "dial " + s.addr, Err: err}
	}
	s.client = c
	return c, nil
}

// drop closes and forgets the client after a transport failure.
func (s *MPDSource) drop() {
	if s.client == nil {
		return
	}
	if err := s.client.Close(); err != nil {
		log.Printf("mpd: closing client: %v", err)
	}
	s.client = nil
}

// classify decides whether a failed command means the connection is gone.
// An ACK is a complete reply, so the client stays usable. Any other failure
// may leave part of a reply unread, and the client is dropped.
func (s *MPDSource) classify(op string, err error) error {
	var ack mpd.Error
	if errors.As(err, &ack) {
		return &ResponseError{Op: op, Err: err}
	}
	s.drop()
	return &ConnectionError{Op: op, Err: err}
}

// FetchStatus runs "status" and returns the reply as "key: value" lines
// sorted by key.
func (s *MPDSource) FetchStatus() ([]string, error) {
	c, err := s.connect()
	if err != nil {
		return nil, err
	}
	attrs, err := c.Status()
	if err != nil {
		return nil, s.classify("status", err)
	}
	return statusLines(attrs), nil
}

// FetchOutputs runs "outputs".
func (s *MPDSource) FetchOutputs() ([]Output, error) {
	c, err := s.connect()
	if err != nil {
		return nil, err
	}
	list, err := c.ListOutputs()
	if err != nil {
		return nil, s.classify("outputs", err)
	}
	outputs := make([]Output, 0, len(list))
	for _, attrs := range list {
		out, err := parseOutput(attrs)
		if err != nil {
			return nil, &ResponseError{Op: "outputs", Err: err}
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// Connected pings the server, dialling first if the previous client was
// dropped.
func (s *MPDSource) Connected() bool {
	c, err := s.connect()
	if err != nil {
		return false
	}
	if err := c.Ping(); err != nil {
		s.drop()
		return false
	}
	return true
}

// Close releases the client, if any.
func (s *MPDSource) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func statusLines(attrs mpd.Attrs) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+attrs[k])
	}
	return lines
}

func parseOutput(attrs mpd.Attrs) (Output, error) {
	id, err := strconv.Atoi(attrs["outputid"])
	if err != nil {
		return Output{}, fmt.Errorf("output id %q: %w", attrs["outputid"], err)
	}
	return Output{
		ID:      id,
		Enabled: attrs["outputenabled"] == "1",
		Name:    attrs["outputname"],
	}, nil
}
