package export

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/james-see/stepseq/pkg/pattern"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Import limits
const (
	ImportStepsPerBar = 16
	MaxImportBars     = 64
)

// gmDrumNames labels rows for the common General MIDI percussion notes
var gmDrumNames = map[uint8]string{
	35: "Acoustic Kick",
	36: "Kick",
	37: "Side Stick",
	38: "Snare",
	39: "Clap",
	40: "Electric Snare",
	41: "Low Floor Tom",
	42: "Closed Hat",
	43: "High Floor Tom",
	44: "Pedal Hat",
	45: "Low Tom",
	46: "Open Hat",
	47: "Low Mid Tom",
	48: "Hi Mid Tom",
	49: "Crash",
	50: "High Tom",
	51: "Ride",
	56: "Cowbell",
	70: "Maracas",
	75: "Claves",
	76: "Wood Block",
}

// DrumName returns the GM percussion name for a note, or "Note N"
func DrumName(note uint8) string {
	if name, ok := gmDrumNames[note]; ok {
		return name
	}
	return fmt.Sprintf("Note %d", note)
}

type hit struct {
	tick     int64
	note     uint8
	velocity uint8
}

// Import quantizes the note-ons of an SMF onto a 16-step grid. Each distinct
// note (lowest first, up to maxRows) becomes a row; later notes are dropped.
// Returns the pattern and the file tempo (DefaultBPM if absent).
func Import(data []byte, maxRows int) (*pattern.Pattern, float64, error) {
	if maxRows <= 0 {
		maxRows = pattern.DefaultRows
	}

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	ticksPerBeat := int64(DefaultTicksPerBeat)
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok && mt.Resolution() > 0 {
		ticksPerBeat = int64(mt.Resolution())
	}
	ticksPerStep := max(1, ticksPerBeat*beatsPerBar/ImportStepsPerBar)

	bpm := float64(pattern.DefaultBPM)
	tempoSeen := false
	var hits []hit
	for _, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			decoded, ok := decode(ev.Message)
			if !ok {
				continue
			}
			switch decoded.Kind {
			case EventTempo:
				if !tempoSeen && decoded.Tempo > 0 {
					bpm = 60000000.0 / float64(decoded.Tempo)
					tempoSeen = true
				}
			case EventNoteOn:
				hits = append(hits, hit{tick: tick, note: decoded.Note, velocity: decoded.Velocity})
			}
		}
	}
	if len(hits) == 0 {
		return nil, 0, errors.New("no notes found in MIDI file")
	}

	var notes []uint8
	var lastTick int64
	for _, h := range hits {
		if !slices.Contains(notes, h.note) {
			notes = append(notes, h.note)
		}
		lastTick = max(lastTick, h.tick)
	}
	slices.Sort(notes)
	if len(notes) > maxRows {
		notes = notes[:maxRows]
	}

	totalSteps := (lastTick+ticksPerStep/2)/ticksPerStep + 1
	bars := int((totalSteps + ImportStepsPerBar - 1) / ImportStepsPerBar)
	bars = min(max(1, bars), MaxImportBars)

	p := pattern.New(len(notes), bars, ImportStepsPerBar)
	rowOf := make(map[uint8]int, len(notes))
	for row, note := range notes {
		rowOf[note] = row
		p.SetRowMeta(row, DrumName(note), int(note))
	}

	for _, h := range hits {
		row, ok := rowOf[h.note]
		if !ok {
			continue
		}
		// nearest step, not floor, so slightly early hits land on the beat
		stepIndex := (h.tick + ticksPerStep/2) / ticksPerStep
		bar := int(stepIndex / ImportStepsPerBar)
		if bar >= bars {
			continue
		}
		step := int(stepIndex % ImportStepsPerBar)
		if h.velocity > p.Velocity(row, bar, step) {
			p.SetVelocity(row, bar, step, int(h.velocity))
		}
	}
	return p, pattern.ClampBPM(bpm), nil
}
