// Package scheduler plays a pattern live, one step per timer tick
package scheduler

import (
	"sync"
	"time"

	"github.com/james-see/stepseq/pkg/pattern"
	"github.com/sirupsen/logrus"
)

// GM percussion and metronome constants
const (
	DrumChannel       = 9 // MIDI channel 10
	MetronomeNote     = 76
	MetronomeVelocity = 70
	stepsPerBeat      = 4 // metronome clicks on quarter notes of a 16th grid
)

// Emitter sends live MIDI notes. Implementations live in pkg/midiout.
type Emitter interface {
	NoteOn(note, velocity, channel uint8) error
	NoteOff(note, channel uint8) error
	Ready() bool
}

// State is the transport state
type State int

const (
	Stopped State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "playing"
	}
	return "stopped"
}

// Position is a playback cursor. Global counts steps since Start across bars
// and drives swing parity.
type Position struct {
	Bar    int
	Step   int
	Global int
}

// Options configures a Scheduler
type Options struct {
	BPM       float64
	Swing     float64
	Metronome bool
	Clock     Clock
	Logger    logrus.FieldLogger
}

// Scheduler drives live playback of a pattern.
//
// Timer callbacks run on their own goroutine, so every method and tick is
// serialised by mu. Pattern edits made while playing must go through Edit or
// SetPattern.
type Scheduler struct {
	mu sync.Mutex

	pattern *pattern.Pattern
	emitter Emitter
	clock   Clock
	log     logrus.FieldLogger

	bpm       float64
	swing     float64
	metronome bool

	state    State
	pos      Position
	active   []uint8
	timer    Timer
	gen      uint64
	interval time.Duration

	observers []func(Position)
}

// New creates a stopped scheduler for p
func New(p *pattern.Pattern, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.BPM == 0 {
		opts.BPM = pattern.DefaultBPM
	}
	return &Scheduler{
		pattern:   p,
		clock:     opts.Clock,
		log:       opts.Logger.WithField("component", "scheduler"),
		bpm:       pattern.ClampBPM(opts.BPM),
		swing:     pattern.ClampSwing(opts.Swing),
		metronome: opts.Metronome,
	}
}

// Start begins playback from the first step. Does nothing if already playing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Playing {
		return
	}
	s.pos = Position{}
	s.flushLocked()
	s.state = Playing
	s.armLocked()

	s.log.WithFields(logrus.Fields{
		"bpm":   s.bpm,
		"swing": s.swing,
	}).Info("playback started")
}

// Stop cancels the pending tick and releases all sounding notes before
// returning. Does nothing if already stopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// invalidates a callback that already fired and is waiting on mu
	s.gen++
	s.flushLocked()
	s.state = Stopped
	s.pos = Position{}
	s.interval = 0

	s.log.Info("playback stopped")
}

// Toggle starts or stops playback and returns the new state
func (s *Scheduler) Toggle() State {
	if s.State() == Playing {
		s.Stop()
	} else {
		s.Start()
	}
	return s.State()
}

// State returns the transport state
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Position returns the next step to be played
func (s *Scheduler) Position() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Interval returns the currently armed wait, zero when stopped
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetTempo changes the tempo from the next tick on
func (s *Scheduler) SetTempo(bpm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bpm = pattern.ClampBPM(bpm)
}

// Tempo returns the clamped tempo
func (s *Scheduler) Tempo() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bpm
}

// SetSwing changes the swing amount from the next tick on
func (s *Scheduler) SetSwing(swing float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swing = pattern.ClampSwing(swing)
}

// Swing returns the clamped swing amount
func (s *Scheduler) Swing() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swing
}

// SetMetronome enables or disables the quarter-note click
func (s *Scheduler) SetMetronome(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metronome = on
}

// Metronome reports whether the click is enabled
func (s *Scheduler) Metronome() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metronome
}

// SetEmitter binds the live output. nil unbinds it; playback continues silently.
// Notes still sounding are released on the previous emitter first.
func (s *Scheduler) SetEmitter(e Emitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
	s.emitter = e
}

// SetPattern replaces the pattern wholesale. The cursor is wrapped into the
// new shape on the next tick.
func (s *Scheduler) SetPattern(p *pattern.Pattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pattern = p
}

// Edit runs fn with exclusive access to the pattern
func (s *Scheduler) Edit(fn func(p *pattern.Pattern)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.pattern)
}

// OnStep registers fn to be called after each played step with that step's
// position. fn runs while the scheduler is locked and must not call back into it.
func (s *Scheduler) OnStep(fn func(Position)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Scheduler) armLocked() {
	d := StepDuration(s.bpm, s.pattern.StepsPerBar(), s.swing, s.pos.Global)
	s.gen++
	gen := s.gen
	s.interval = d
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Playing || gen != s.gen {
		return
	}
	s.tickLocked()
}

func (s *Scheduler) tickLocked() {
	s.wrapLocked()
	played := s.pos

	s.emitStepLocked(played.Bar, played.Step)

	s.pos.Step++
	s.pos.Global++
	if s.pos.Step >= s.pattern.StepsPerBar() {
		s.pos.Step = 0
		s.pos.Bar++
		if s.pos.Bar >= s.pattern.Bars() {
			s.pos.Bar = 0
		}
	}

	for _, fn := range s.observers {
		fn(played)
	}

	s.armLocked()
	s.log.WithFields(logrus.Fields{
		"bar":      played.Bar,
		"step":     played.Step,
		"global":   played.Global,
		"interval": s.interval,
	}).Trace("tick")
}

// wrapLocked keeps the cursor inside a pattern that shrank since the last tick
func (s *Scheduler) wrapLocked() {
	if s.pos.Step >= s.pattern.StepsPerBar() {
		s.pos.Step = 0
		s.pos.Bar++
	}
	if s.pos.Bar >= s.pattern.Bars() {
		s.pos.Bar = 0
	}
}

func (s *Scheduler) ready() bool {
	return s.emitter != nil && s.emitter.Ready()
}

func (s *Scheduler) emitStepLocked(bar, step int) {
	if !s.ready() {
		s.active = s.active[:0]
		return
	}

	s.flushLocked()

	for row := 0; row < s.pattern.Rows(); row++ {
		v := s.pattern.Velocity(row, bar, step)
		if v == 0 {
			continue
		}
		note := s.pattern.RowMeta(row).MIDINote
		if err := s.emitter.NoteOn(note, v, DrumChannel); err != nil {
			s.log.WithError(err).WithField("note", note).Warn("note on failed")
			continue
		}
		s.active = append(s.active, note)
	}

	// the click is short and percussive, so it is never tracked for note-off
	if s.metronome && step%stepsPerBeat == 0 {
		if err := s.emitter.NoteOn(MetronomeNote, MetronomeVelocity, DrumChannel); err != nil {
			s.log.WithError(err).Warn("metronome click failed")
		}
	}
}

// flushLocked sends note-off for every active note and forgets them
func (s *Scheduler) flushLocked() {
	if s.ready() {
		for _, note := range s.active {
			if err := s.emitter.NoteOff(note, DrumChannel); err != nil {
				s.log.WithError(err).WithField("note", note).Warn("note off failed")
			}
		}
	}
	s.active = s.active[:0]
}
