package midiout

import (
	"sync"

	"gitlab.com/gomidi/midi/v2"
)

// Kind is a recorded message type
type Kind int

const (
	KindNoteOn Kind = iota
	KindNoteOff
)

func (k Kind) String() string {
	if k == KindNoteOn {
		return "note-on"
	}
	return "note-off"
}

// Event is a decoded channel message
type Event struct {
	Kind     Kind
	Channel  uint8
	Note     uint8
	Velocity uint8
}

// Recorder keeps every message it is sent. Used for dry runs and tests.
type Recorder struct {
	mu       sync.Mutex
	messages []midi.Message
	unready  bool
}

// NewRecorder returns a ready recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// NoteOn records a note-on
func (r *Recorder) NoteOn(note, velocity, channel uint8) error {
	r.record(midi.NoteOn(channel, note, velocity))
	return nil
}

// NoteOff records a note-off
func (r *Recorder) NoteOff(note, channel uint8) error {
	r.record(midi.NoteOff(channel, note))
	return nil
}

func (r *Recorder) record(msg midi.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// Ready reports false after SetReady(false)
func (r *Recorder) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.unready
}

// SetReady toggles readiness
func (r *Recorder) SetReady(ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unready = !ready
}

// Messages returns a copy of the raw messages
func (r *Recorder) Messages() []midi.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]midi.Message(nil), r.messages...)
}

// Events decodes the recorded messages
func (r *Recorder) Events() []Event {
	msgs := r.Messages()
	events := make([]Event, 0, len(msgs))
	for _, msg := range msgs {
		var ch, key, vel uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			events = append(events, Event{Kind: KindNoteOn, Channel: ch, Note: key, Velocity: vel})
		case msg.GetNoteEnd(&ch, &key):
			events = append(events, Event{Kind: KindNoteOff, Channel: ch, Note: key})
		}
	}
	return events
}

// Reset forgets all recorded messages
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
