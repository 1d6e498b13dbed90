package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/james-see/stepseq/pkg/logging"
	"github.com/james-see/stepseq/pkg/midiout"
	"github.com/james-see/stepseq/pkg/pattern"
	"github.com/james-see/stepseq/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTimer struct{}

func (manualTimer) Stop() bool { return true }

// manualClock keeps the last scheduled callback so tests can fire it
type manualClock struct {
	next func()
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) scheduler.Timer {
	c.next = f
	return manualTimer{}
}

func newTestModel(t *testing.T) (Model, *scheduler.Scheduler, *manualClock) {
	t.Helper()
	p := pattern.New(2, 2, 4)
	p.SetRowMeta(0, "Kick", 36)
	p.SetRowMeta(1, "Snare", 38)
	p.SetVelocity(0, 0, 0, 100)
	p.SetVelocity(1, 1, 2, 90)

	clock := &manualClock{}
	s := scheduler.New(p, scheduler.Options{BPM: 120, Clock: clock, Logger: logging.Discard()})
	s.SetEmitter(midiout.NewRecorder())
	return New(s, "/tmp/beat.json"), s, clock
}

func press(m tea.Model, key string) (tea.Model, tea.Cmd) {
	if key == " " {
		return m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	}
	return m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
}

func TestSpaceTogglesTransport(t *testing.T) {
	m, s, _ := newTestModel(t)

	next, _ := press(m, " ")
	assert.Equal(t, scheduler.Playing, s.State())
	assert.Contains(t, next.View(), "PLAYING")

	next, _ = press(next, " ")
	assert.Equal(t, scheduler.Stopped, s.State())
	assert.Contains(t, next.View(), "STOPPED")
}

func TestTempoSwingMetronomeKeys(t *testing.T) {
	m, s, _ := newTestModel(t)

	var next tea.Model = m
	next, _ = press(next, "+")
	next, _ = press(next, "+")
	next, _ = press(next, "-")
	assert.Equal(t, 121.0, s.Tempo())

	next, _ = press(next, "]")
	next, _ = press(next, "]")
	assert.InDelta(t, 0.1, s.Swing(), 1e-9)
	next, _ = press(next, "[")
	assert.InDelta(t, 0.05, s.Swing(), 1e-9)

	next, _ = press(next, "m")
	assert.True(t, s.Metronome())
	assert.Contains(t, next.View(), "metronome on")
}

func TestQuitStopsPlayback(t *testing.T) {
	m, s, _ := newTestModel(t)
	next, _ := press(m, " ")
	require.Equal(t, scheduler.Playing, s.State())

	_, cmd := press(next, "q")
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
	assert.Equal(t, scheduler.Stopped, s.State())
}

func TestPlayedStepsReachTheView(t *testing.T) {
	m, _, clock := newTestModel(t)
	next, _ := press(m, " ")

	clock.next() // bar 0 step 0
	msg := waitForStep(m.steps)()
	next, cmd := next.Update(msg)
	assert.NotNil(t, cmd, "keeps listening")

	view := next.View()
	assert.Contains(t, view, "bar 1  step 1")
	assert.Contains(t, view, "Kick")
	assert.Contains(t, view, "Snare")

	// advance into the second bar
	for i := 0; i < 4; i++ {
		clock.next()
		next, _ = next.Update(waitForStep(m.steps)())
	}
	model := next.(Model)
	assert.Equal(t, scheduler.Position{Bar: 1, Step: 0, Global: 4}, model.pos)
	assert.Equal(t, []uint8{0, 0, 90, 0}, model.bar[1])
}

func TestSnapshotBeforePlay(t *testing.T) {
	m, _, _ := newTestModel(t)
	assert.Equal(t, []string{"Kick", "Snare"}, m.rows)
	assert.Equal(t, []uint8{100, 0, 0, 0}, m.bar[0])
	assert.True(t, strings.Contains(m.View(), "beat.json"))
	assert.Contains(t, m.View(), "Position")
}
