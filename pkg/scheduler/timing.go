package scheduler

import (
	"time"

	"github.com/james-see/stepseq/pkg/pattern"
)

// beats per bar; bars are always 4/4
const beatsPerBar = 4

// StepDuration returns how long a step lasts at the given tempo.
//
// With swing > 0, steps alternate short/long by globalStep parity: even
// steps are scaled by 1-swing and odd steps by 1+swing, so a pair always
// adds up to two straight steps. Swing is clamped to 0-0.5 and bpm to
// pattern.MinBPM-pattern.MaxBPM. The result is truncated to whole
// milliseconds and is never shorter than 1ms.
func StepDuration(bpm float64, stepsPerBar int, swing float64, globalStep int) time.Duration {
	bpm = pattern.ClampBPM(bpm)
	stepsPerBar = max(1, stepsPerBar)

	beatMs := 60000.0 / bpm
	barMs := beatMs * beatsPerBar
	baseStepMs := barMs / float64(stepsPerBar)

	var ms int64
	if !(swing > 0) {
		ms = int64(baseStepMs)
	} else {
		swing = pattern.ClampSwing(swing)
		factor := 1 + swing
		if globalStep%2 == 0 {
			factor = 1 - swing
		}
		ms = int64(baseStepMs * factor)
	}

	if ms <= 0 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}
