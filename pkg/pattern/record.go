package pattern

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidFormat is wrapped by every error caused by a malformed pattern record
var ErrInvalidFormat = errors.New("invalid pattern format")

// RowRecord is the persisted form of RowMeta
type RowRecord struct {
	Name     string `json:"name"`
	MIDINote int    `json:"midiNote"`
}

// Record is the persisted form of a Pattern. Data is indexed [row][bar][step].
type Record struct {
	NumRows     int         `json:"numRows"`
	Bars        int         `json:"bars"`
	StepsPerBar int         `json:"stepsPerBar"`
	RowsMeta    []RowRecord `json:"rowsMeta"`
	Data        [][][]int   `json:"data"`
}

// UnmarshalJSON also accepts the older snake_case key names
func (r *Record) UnmarshalJSON(b []byte) error {
	type plain Record
	var aux struct {
		plain
		LegacyRows  *int        `json:"num_rows"`
		LegacySteps *int        `json:"steps_per_bar"`
		LegacyMeta  []legacyRow `json:"rows_meta"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	*r = Record(aux.plain)
	if aux.LegacyRows != nil && r.NumRows == 0 {
		r.NumRows = *aux.LegacyRows
	}
	if aux.LegacySteps != nil && r.StepsPerBar == 0 {
		r.StepsPerBar = *aux.LegacySteps
	}
	if r.RowsMeta == nil && aux.LegacyMeta != nil {
		r.RowsMeta = make([]RowRecord, len(aux.LegacyMeta))
		for i, m := range aux.LegacyMeta {
			r.RowsMeta[i] = RowRecord{Name: m.Name, MIDINote: m.MIDINote}
		}
	}
	return nil
}

type legacyRow struct {
	Name     string `json:"name"`
	MIDINote int    `json:"midi_note"`
}

// Record returns a detached snapshot of the pattern
func (p *Pattern) Record() Record {
	rec := Record{
		NumRows:     p.rows,
		Bars:        p.bars,
		StepsPerBar: p.stepsPerBar,
		RowsMeta:    make([]RowRecord, p.rows),
		Data:        make([][][]int, p.rows),
	}
	for r := 0; r < p.rows; r++ {
		rec.RowsMeta[r] = RowRecord{Name: p.meta[r].Name, MIDINote: int(p.meta[r].MIDINote)}
		rec.Data[r] = make([][]int, p.bars)
		for b := 0; b < p.bars; b++ {
			steps := make([]int, p.stepsPerBar)
			for s := range steps {
				steps[s] = int(p.cells[p.index(r, b, s)])
			}
			rec.Data[r][b] = steps
		}
	}
	return rec
}

// FromRecord builds a pattern from a record. The declared shape must match
// the data exactly and every value must be a valid MIDI byte.
func FromRecord(rec Record) (*Pattern, error) {
	if rec.NumRows < 1 || rec.Bars < 1 || rec.StepsPerBar < 1 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %dx%dx%d",
			ErrInvalidFormat, rec.NumRows, rec.Bars, rec.StepsPerBar)
	}
	if rec.NumRows > MaxRows || rec.Bars > MaxBars || rec.StepsPerBar > MaxStepsPerBar {
		return nil, fmt.Errorf("%w: dimensions %dx%dx%d exceed %dx%dx%d",
			ErrInvalidFormat, rec.NumRows, rec.Bars, rec.StepsPerBar, MaxRows, MaxBars, MaxStepsPerBar)
	}
	if len(rec.RowsMeta) != rec.NumRows {
		return nil, fmt.Errorf("%w: %d rows declared but %d row entries",
			ErrInvalidFormat, rec.NumRows, len(rec.RowsMeta))
	}
	if len(rec.Data) != rec.NumRows {
		return nil, fmt.Errorf("%w: %d rows declared but data has %d",
			ErrInvalidFormat, rec.NumRows, len(rec.Data))
	}

	for r, m := range rec.RowsMeta {
		if m.MIDINote < 0 || m.MIDINote > MaxNote {
			return nil, fmt.Errorf("%w: row %d note %d out of range", ErrInvalidFormat, r, m.MIDINote)
		}
	}
	// the grid is allocated only once every axis matches the declared shape
	for r, bars := range rec.Data {
		if len(bars) != rec.Bars {
			return nil, fmt.Errorf("%w: row %d has %d bars, want %d",
				ErrInvalidFormat, r, len(bars), rec.Bars)
		}
		for b, steps := range bars {
			if len(steps) != rec.StepsPerBar {
				return nil, fmt.Errorf("%w: row %d bar %d has %d steps, want %d",
					ErrInvalidFormat, r, b, len(steps), rec.StepsPerBar)
			}
		}
	}

	p := New(rec.NumRows, rec.Bars, rec.StepsPerBar)
	for r, m := range rec.RowsMeta {
		p.meta[r] = RowMeta{Name: m.Name, MIDINote: uint8(m.MIDINote)}
	}

	for r, bars := range rec.Data {
		for b, steps := range bars {
			for s, v := range steps {
				if v < 0 || v > MaxVelocity {
					return nil, fmt.Errorf("%w: velocity %d at (%d, %d, %d) out of range",
						ErrInvalidFormat, v, r, b, s)
				}
				p.cells[p.index(r, b, s)] = uint8(v)
			}
		}
	}
	return p, nil
}
