package export

import (
	"bytes"
	"fmt"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Summary is a decoded SMF
type Summary struct {
	TicksPerBeat uint16
	BPM          float64
	Tracks       int
	Events       []Event // every track, concatenated in file order
}

// Inspect decodes the tempo and note events of an SMF. Other messages are
// skipped but their deltas are folded into the next reported event.
func Inspect(data []byte) (Summary, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return Summary{}, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	sum := Summary{Tracks: len(s.Tracks)}
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		sum.TicksPerBeat = mt.Resolution()
	}

	for _, track := range s.Tracks {
		var carry uint32
		for _, ev := range track {
			carry += ev.Delta
			decoded, ok := decode(ev.Message)
			if !ok {
				continue
			}
			decoded.Delta = carry
			carry = 0
			if decoded.Kind == EventTempo && sum.BPM == 0 && decoded.Tempo > 0 {
				sum.BPM = 60000000.0 / float64(decoded.Tempo)
			}
			sum.Events = append(sum.Events, decoded)
		}
	}
	return sum, nil
}

func decode(msg []byte) (Event, bool) {
	// tempo meta: FF 51 03 tt tt tt
	if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
		tempo := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
		return Event{Kind: EventTempo, Tempo: tempo}, true
	}
	if len(msg) < 3 {
		return Event{}, false
	}

	status := msg[0] & 0xF0
	ev := Event{Channel: msg[0] & 0x0F, Note: msg[1], Velocity: msg[2]}
	switch {
	case status == 0x90 && ev.Velocity > 0:
		ev.Kind = EventNoteOn
	case status == 0x80, status == 0x90:
		ev.Kind = EventNoteOff
		ev.Velocity = 0
	default:
		return Event{}, false
	}
	return ev, true
}
