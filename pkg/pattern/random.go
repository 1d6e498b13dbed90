package pattern

import (
	"math/rand/v2"
)

// Rand is the randomness source used by RandomizeBar and HumanizeBar.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// NewRand returns a deterministic generator for the given seed
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func orGlobal(rng Rand) Rand {
	if rng == nil {
		return globalRand{}
	}
	return rng
}

// RandomizeBar overwrites a bar with random hits. Each cell independently
// becomes a hit with probability density, with a velocity drawn uniformly
// from [minVel, maxVel]; every other cell is silenced.
func (p *Pattern) RandomizeBar(bar int, density float64, minVel, maxVel int, rng Rand) {
	if !p.validBar(bar) {
		return
	}
	rng = orGlobal(rng)

	minVel = max(1, minVel)
	maxVel = min(MaxVelocity, maxVel)
	if minVel > maxVel {
		minVel, maxVel = maxVel, minVel
	}
	// swapped bounds may have escaped the range again
	minVel = clamp(minVel, 1, MaxVelocity)
	maxVel = clamp(maxVel, 1, MaxVelocity)

	for r := 0; r < p.rows; r++ {
		for s := 0; s < p.stepsPerBar; s++ {
			var v int
			if rng.Float64() < density {
				v = minVel + rng.IntN(maxVel-minVel+1)
			}
			p.cells[p.index(r, bar, s)] = uint8(v)
		}
	}
	p.notify(Change{Kind: ChangeBar, Bar: bar})
}

// HumanizeBar nudges every non-zero velocity in a bar by a random offset in
// [-amount, amount], keeping the result within 1-127. Silent cells stay silent.
// Negative amounts count as their magnitude; magnitudes above 127 act as 127.
func (p *Pattern) HumanizeBar(bar, amount int, rng Rand) {
	if !p.validBar(bar) {
		return
	}
	rng = orGlobal(rng)
	// any offset beyond the velocity range clamps to the same result
	if amount < 0 {
		amount = max(-MaxVelocity, amount)
		amount = -amount
	}
	amount = min(amount, MaxVelocity)

	for r := 0; r < p.rows; r++ {
		for s := 0; s < p.stepsPerBar; s++ {
			i := p.index(r, bar, s)
			v := int(p.cells[i])
			if v == 0 {
				continue
			}
			v += rng.IntN(2*amount+1) - amount
			p.cells[i] = uint8(clamp(v, 1, MaxVelocity))
		}
	}
	p.notify(Change{Kind: ChangeBar, Bar: bar})
}
