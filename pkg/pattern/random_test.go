package pattern

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomizeBarDensityZeroSilencesBar(t *testing.T) {
	p := New(4, 2, 16)
	fillBar(p, 1, 1)

	p.RandomizeBar(1, 0, 40, 120, NewRand(1))
	for r := 0; r < p.Rows(); r++ {
		for s := 0; s < p.StepsPerBar(); s++ {
			assert.Zero(t, p.Velocity(r, 1, s))
		}
	}
}

func TestRandomizeBarDensityOneFillsRange(t *testing.T) {
	p := New(4, 2, 16)
	p.RandomizeBar(0, 1, 40, 120, NewRand(7))

	for r := 0; r < p.Rows(); r++ {
		for s := 0; s < p.StepsPerBar(); s++ {
			v := p.Velocity(r, 0, s)
			assert.GreaterOrEqual(t, v, uint8(40))
			assert.LessOrEqual(t, v, uint8(120))
			assert.Zero(t, p.Velocity(r, 1, s), "other bars untouched")
		}
	}
}

func TestRandomizeBarClampsAndSwapsBounds(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
		lo, hi   uint8
	}{
		{"swapped", 100, 50, 50, 100},
		{"min below one", -20, 3, 1, 3},
		{"max above 127", 120, 500, 120, 127},
		{"both out of range and swapped", 300, -4, 1, 127},
		{"single value", 64, 64, 64, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(2, 1, 32)
			p.RandomizeBar(0, 1, tt.min, tt.max, NewRand(3))
			for r := 0; r < p.Rows(); r++ {
				for s := 0; s < p.StepsPerBar(); s++ {
					v := p.Velocity(r, 0, s)
					if v < tt.lo || v > tt.hi {
						t.Errorf("RandomizeBar(%d, %d) produced %d, want [%d, %d]", tt.min, tt.max, v, tt.lo, tt.hi)
					}
				}
			}
		})
	}
}

func TestRandomizeBarIsDeterministicForSeed(t *testing.T) {
	a := New(4, 1, 16)
	b := New(4, 1, 16)
	a.RandomizeBar(0, 0.3, 40, 120, NewRand(42))
	b.RandomizeBar(0, 0.3, 40, 120, NewRand(42))
	assert.Equal(t, a.Record(), b.Record())
}

func TestRandomizeBarOutOfRange(t *testing.T) {
	p := New(1, 1, 4)
	calls := 0
	p.Subscribe(func(Change) { calls++ })
	p.RandomizeBar(1, 1, 1, 127, NewRand(1))
	p.RandomizeBar(-1, 1, 1, 127, nil)
	assert.Zero(t, calls)
}

func TestRandomizeBarNilRand(t *testing.T) {
	p := New(2, 1, 8)
	p.RandomizeBar(0, 1, 10, 20, nil)
	for s := 0; s < 8; s++ {
		assert.GreaterOrEqual(t, p.Velocity(0, 0, s), uint8(10))
	}
}

func TestHumanizeKeepsZerosAndRange(t *testing.T) {
	p := New(3, 1, 16)
	for s := 0; s < 16; s += 2 {
		p.SetVelocity(0, 0, s, 1)
		p.SetVelocity(1, 0, s, 127)
		p.SetVelocity(2, 0, s, 64)
	}

	for seed := uint64(0); seed < 20; seed++ {
		p.HumanizeBar(0, 30, NewRand(seed))
		for r := 0; r < 3; r++ {
			for s := 0; s < 16; s++ {
				v := p.Velocity(r, 0, s)
				if s%2 == 1 {
					assert.Zero(t, v, "silent cell (%d,%d) must stay silent", r, s)
					continue
				}
				assert.GreaterOrEqual(t, v, uint8(1))
				assert.LessOrEqual(t, v, uint8(127))
			}
		}
	}
}

func TestHumanizeStaysWithinAmount(t *testing.T) {
	p := New(1, 1, 64)
	for s := 0; s < 64; s++ {
		p.SetVelocity(0, 0, s, 64)
	}
	p.HumanizeBar(0, 5, NewRand(9))
	for s := 0; s < 64; s++ {
		v := int(p.Velocity(0, 0, s))
		assert.InDelta(t, 64, v, 5)
	}
}

func TestHumanizeZeroAmountIsIdentity(t *testing.T) {
	p := New(2, 1, 8)
	fillBar(p, 0, 3)
	before := p.Record()
	p.HumanizeBar(0, 0, NewRand(1))
	assert.Equal(t, before, p.Record())
}

func TestHumanizeOutOfRange(t *testing.T) {
	p := New(1, 1, 4)
	p.SetVelocity(0, 0, 0, 50)
	p.HumanizeBar(3, 100, NewRand(1))
	assert.Equal(t, uint8(50), p.Velocity(0, 0, 0))
}

func TestClampBPM(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{120, 120},
		{0, MinBPM},
		{-10, MinBPM},
		{5000, MaxBPM},
		{40, 40},
	}
	for _, tt := range tests {
		if got := ClampBPM(tt.in); got != tt.want {
			t.Errorf("ClampBPM(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClampSwing(t *testing.T) {
	assert.Equal(t, 0.0, ClampSwing(-1))
	assert.Equal(t, 0.25, ClampSwing(0.25))
	assert.Equal(t, MaxSwing, ClampSwing(3))
}

func TestHumanizeExtremeAmounts(t *testing.T) {
	for _, amount := range []int{math.MaxInt, math.MinInt, math.MaxInt / 2, 1000} {
		p := New(1, 1, 4)
		p.SetVelocity(0, 0, 0, 64)
		p.SetVelocity(0, 0, 2, 1)

		assert.NotPanics(t, func() { p.HumanizeBar(0, amount, NewRand(1)) }, "amount %d", amount)
		for s := 0; s < 4; s++ {
			v := p.Velocity(0, 0, s)
			if s%2 == 1 {
				assert.Zero(t, v)
				continue
			}
			assert.GreaterOrEqual(t, v, uint8(1))
			assert.LessOrEqual(t, v, uint8(MaxVelocity))
		}
	}
}

func TestHumanizeLargeAmountActsAsMaxVelocity(t *testing.T) {
	a := New(1, 1, 8)
	b := New(1, 1, 8)
	for s := 0; s < 8; s++ {
		a.SetVelocity(0, 0, s, 64)
		b.SetVelocity(0, 0, s, 64)
	}
	a.HumanizeBar(0, math.MaxInt, NewRand(9))
	b.HumanizeBar(0, MaxVelocity, NewRand(9))
	assert.Equal(t, b.Record(), a.Record())
}
