// Package export renders patterns to Standard MIDI Files and reads them back
package export

// EventKind identifies a track event
type EventKind int

const (
	EventTempo EventKind = iota
	EventNoteOn
	EventNoteOff
	// EventPadding is a silent note-off (note 0, velocity 0) that carries
	// trailing rest ticks to the end of the pattern
	EventPadding
)

func (k EventKind) String() string {
	switch k {
	case EventTempo:
		return "tempo"
	case EventNoteOn:
		return "note-on"
	case EventNoteOff:
		return "note-off"
	case EventPadding:
		return "padding"
	default:
		return "unknown"
	}
}

// Event is one delta-timed track event
type Event struct {
	Delta    uint32 // ticks since the previous event
	Kind     EventKind
	Channel  uint8
	Note     uint8
	Velocity uint8
	Tempo    uint32 // microseconds per beat, tempo events only
}

// Track is a flattened pattern ready for encoding
type Track struct {
	TicksPerBeat  uint16
	TicksPerStep  uint32
	MicrosPerBeat uint32
	Events        []Event
}

// TotalTicks sums every delta in the track
func (t Track) TotalTicks() uint64 {
	var total uint64
	for _, ev := range t.Events {
		total += uint64(ev.Delta)
	}
	return total
}
