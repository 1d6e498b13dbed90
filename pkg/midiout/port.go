// Package midiout provides live MIDI destinations for the scheduler
package midiout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// DefaultScanTimeout bounds port enumeration; some drivers (CoreMIDI) can hang
const DefaultScanTimeout = 3 * time.Second

// ErrScanTimeout is returned when the driver does not answer in time
var ErrScanTimeout = errors.New("timed out listing MIDI output ports")

// ErrNoSuchPort is returned when no output port matches a query
var ErrNoSuchPort = errors.New("no matching MIDI output port")

// ListPorts returns the available output ports. A driver must be registered,
// e.g. by importing gitlab.com/gomidi/midi/v2/drivers/rtmididrv.
func ListPorts(timeout time.Duration) ([]drivers.Out, error) {
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}

	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- midi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(timeout):
		return nil, ErrScanTimeout
	}
}

// FindPort picks a port by index, exact name, or case-insensitive substring,
// in that order.
func FindPort(ports []drivers.Out, query string) (drivers.Out, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty port name", ErrNoSuchPort)
	}

	if idx, err := strconv.Atoi(query); err == nil {
		for _, p := range ports {
			if p.Number() == idx {
				return p, nil
			}
		}
	}
	for _, p := range ports {
		if p.String() == query {
			return p, nil
		}
	}
	lower := strings.ToLower(query)
	for _, p := range ports {
		if strings.Contains(strings.ToLower(p.String()), lower) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoSuchPort, query)
}

// Port sends notes to a gomidi output port
type Port struct {
	mu   sync.Mutex
	out  drivers.Out
	send func(msg midi.Message) error
}

// Open finds an output port matching query and opens it
func Open(query string, timeout time.Duration) (*Port, error) {
	ports, err := ListPorts(timeout)
	if err != nil {
		return nil, err
	}
	out, err := FindPort(ports, query)
	if err != nil {
		return nil, err
	}
	return NewPort(out)
}

// NewPort opens out for sending
func NewPort(out drivers.Out) (*Port, error) {
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("failed to open MIDI port %s: %w", out.String(), err)
	}
	return &Port{
		out:  out,
		send: func(msg midi.Message) error { return send(msg) },
	}, nil
}

// Name returns the port name
func (p *Port) Name() string {
	return p.out.String()
}

// NoteOn sends a note-on message
func (p *Port) NoteOn(note, velocity, channel uint8) error {
	return p.write(midi.NoteOn(channel, note, velocity))
}

// NoteOff sends a note-off message
func (p *Port) NoteOff(note, channel uint8) error {
	return p.write(midi.NoteOff(channel, note))
}

func (p *Port) write(msg midi.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.send == nil {
		return errors.New("MIDI port closed")
	}
	return p.send(msg)
}

// Ready reports whether the port is open
func (p *Port) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.send != nil && p.out.IsOpen()
}

// Close closes the underlying port. Further sends fail.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.send == nil {
		return nil
	}
	p.send = nil
	return p.out.Close()
}
