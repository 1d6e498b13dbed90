package pattern

// Tempo and swing limits shared by playback and export
const (
	MinBPM     = 40
	MaxBPM     = 240
	DefaultBPM = 120
	MaxSwing   = 0.5
)

// ClampBPM keeps a tempo within MinBPM-MaxBPM
func ClampBPM(bpm float64) float64 {
	if bpm != bpm {
		return DefaultBPM
	}
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}

// ClampSwing keeps a swing amount within 0-MaxSwing
func ClampSwing(swing float64) float64 {
	if swing != swing || swing < 0 {
		return 0
	}
	if swing > MaxSwing {
		return MaxSwing
	}
	return swing
}
