// Package pattern provides the drum grid model: per-row velocities across bars and steps
package pattern

import (
	"fmt"
)

// Grid defaults and limits
const (
	MaxVelocity        = 127
	MaxNote            = 127
	BaseNote           = 36 // GM kick
	DefaultRows        = 8
	DefaultBars        = 4
	DefaultStepsPerBar = 16

	// upper bounds keep a grid under 8M cells
	MaxRows        = 128
	MaxBars        = 256
	MaxStepsPerBar = 256
)

// RowMeta describes a single drum row
type RowMeta struct {
	Name     string
	MIDINote uint8
}

// Pattern is a rows x bars x steps grid of velocities (0-127).
//
// Cells live in one flat slice laid out row-major as [row][bar][step], so the
// grid can never become ragged. A Pattern is not safe for concurrent use;
// callers sharing one with a running scheduler go through Scheduler.Edit.
type Pattern struct {
	rows        int
	bars        int
	stepsPerBar int

	meta  []RowMeta
	cells []uint8

	// one-bar snapshot, [row][step]
	clipboard [][]uint8

	observers    []observer
	nextObserver int
}

// New creates an empty pattern. Dimensions are clamped to 1-MaxRows,
// 1-MaxBars and 1-MaxStepsPerBar.
func New(rows, bars, stepsPerBar int) *Pattern {
	rows = clamp(rows, 1, MaxRows)
	bars = clamp(bars, 1, MaxBars)
	stepsPerBar = clamp(stepsPerBar, 1, MaxStepsPerBar)

	p := &Pattern{
		rows:        rows,
		bars:        bars,
		stepsPerBar: stepsPerBar,
		meta:        make([]RowMeta, rows),
		cells:       make([]uint8, rows*bars*stepsPerBar),
	}
	for i := range p.meta {
		p.meta[i] = RowMeta{
			Name:     fmt.Sprintf("Part %d", i+1),
			MIDINote: uint8(min(BaseNote+i, MaxNote)),
		}
	}
	return p
}

// NewDefault creates an 8 row, 4 bar, 16 step pattern
func NewDefault() *Pattern {
	return New(DefaultRows, DefaultBars, DefaultStepsPerBar)
}

// Rows returns the number of rows
func (p *Pattern) Rows() int { return p.rows }

// Bars returns the number of bars
func (p *Pattern) Bars() int { return p.bars }

// StepsPerBar returns the number of steps in each bar
func (p *Pattern) StepsPerBar() int { return p.stepsPerBar }

func (p *Pattern) index(row, bar, step int) int {
	if row < 0 || row >= p.rows || bar < 0 || bar >= p.bars || step < 0 || step >= p.stepsPerBar {
		panic(fmt.Sprintf("pattern: cell (%d, %d, %d) out of range for %dx%dx%d grid",
			row, bar, step, p.rows, p.bars, p.stepsPerBar))
	}
	return (row*p.bars+bar)*p.stepsPerBar + step
}

func (p *Pattern) validBar(bar int) bool {
	return bar >= 0 && bar < p.bars
}

// SetVelocity writes a cell, clamping v to 0-127
func (p *Pattern) SetVelocity(row, bar, step, v int) {
	i := p.index(row, bar, step)
	p.cells[i] = clampVelocity(v)
	p.notify(Change{Kind: ChangeVelocity, Row: row, Bar: bar, Step: step})
}

// Velocity returns the velocity stored in a cell
func (p *Pattern) Velocity(row, bar, step int) uint8 {
	return p.cells[p.index(row, bar, step)]
}

// SetRowMeta updates a row's name and MIDI note. The note is clamped to 0-127.
func (p *Pattern) SetRowMeta(row int, name string, note int) {
	if row < 0 || row >= p.rows {
		panic(fmt.Sprintf("pattern: row %d out of range (%d rows)", row, p.rows))
	}
	p.meta[row] = RowMeta{Name: name, MIDINote: uint8(clamp(note, 0, MaxNote))}
	p.notify(Change{Kind: ChangeRowMeta, Row: row})
}

// RowMeta returns a row's metadata
func (p *Pattern) RowMeta(row int) RowMeta {
	if row < 0 || row >= p.rows {
		panic(fmt.Sprintf("pattern: row %d out of range (%d rows)", row, p.rows))
	}
	return p.meta[row]
}

// SetBars changes the pattern length. New bars are silent; dropped bars are
// discarded, so shrinking then growing again does not bring them back.
// n is clamped to 1-MaxBars.
func (p *Pattern) SetBars(n int) {
	n = clamp(n, 1, MaxBars)
	if n == p.bars {
		return
	}
	p.reshape(n, p.stepsPerBar)
	p.notify(Change{Kind: ChangeShape})
}

// SetStepsPerBar changes the bar resolution, padding or truncating each bar
// at the tail. n is clamped to 1-MaxStepsPerBar.
func (p *Pattern) SetStepsPerBar(n int) {
	n = clamp(n, 1, MaxStepsPerBar)
	if n == p.stepsPerBar {
		return
	}
	p.reshape(p.bars, n)
	p.notify(Change{Kind: ChangeShape})
}

// reshape rebuilds the cell slice for new bar/step counts keeping the overlap
func (p *Pattern) reshape(bars, stepsPerBar int) {
	cells := make([]uint8, p.rows*bars*stepsPerBar)
	keepBars := min(bars, p.bars)
	keepSteps := min(stepsPerBar, p.stepsPerBar)

	for r := 0; r < p.rows; r++ {
		for b := 0; b < keepBars; b++ {
			src := (r*p.bars + b) * p.stepsPerBar
			dst := (r*bars + b) * stepsPerBar
			copy(cells[dst:dst+keepSteps], p.cells[src:src+keepSteps])
		}
	}

	p.cells = cells
	p.bars = bars
	p.stepsPerBar = stepsPerBar
}

// ClearBar silences every cell of a bar. Out-of-range bars are ignored.
func (p *Pattern) ClearBar(bar int) {
	if !p.validBar(bar) {
		return
	}
	for r := 0; r < p.rows; r++ {
		start := p.index(r, bar, 0)
		clear(p.cells[start : start+p.stepsPerBar])
	}
	p.notify(Change{Kind: ChangeBar, Bar: bar})
}

// CopyBar snapshots a bar into the clipboard, replacing any earlier snapshot.
// Out-of-range bars are ignored.
func (p *Pattern) CopyBar(bar int) {
	if !p.validBar(bar) {
		return
	}
	buf := make([][]uint8, p.rows)
	for r := range buf {
		start := p.index(r, bar, 0)
		buf[r] = append([]uint8(nil), p.cells[start:start+p.stepsPerBar]...)
	}
	p.clipboard = buf
}

// HasClipboard reports whether a bar has been copied
func (p *Pattern) HasClipboard() bool {
	return len(p.clipboard) > 0
}

// PasteBar overwrites a bar with the clipboard, fitted to the current step count.
// Does nothing if nothing was copied or the bar is out of range.
func (p *Pattern) PasteBar(bar int) {
	if !p.HasClipboard() || !p.validBar(bar) {
		return
	}
	for r := 0; r < p.rows && r < len(p.clipboard); r++ {
		start := p.index(r, bar, 0)
		dst := p.cells[start : start+p.stepsPerBar]
		n := copy(dst, p.clipboard[r])
		clear(dst[n:])
	}
	p.notify(Change{Kind: ChangeBar, Bar: bar})
}

// Clone returns a deep copy of the pattern without clipboard or observers
func (p *Pattern) Clone() *Pattern {
	return &Pattern{
		rows:        p.rows,
		bars:        p.bars,
		stepsPerBar: p.stepsPerBar,
		meta:        append([]RowMeta(nil), p.meta...),
		cells:       append([]uint8(nil), p.cells...),
	}
}

func clampVelocity(v int) uint8 {
	return uint8(clamp(v, 0, MaxVelocity))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
