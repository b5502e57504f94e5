package node

import (
	"math"
	"math/rand/v2"
)

// phasor advances a normalized phase in [0, 1) by a per-sample frequency.
type phasor struct {
	sr    float64
	phase float64
}

func (p *phasor) step(freq float32) float64 {
	cur := p.phase
	p.phase += float64(freq) / p.sr
	p.phase -= math.Floor(p.phase)
	return cur
}

type sine struct {
	Args
	phasor
}

func newSine(ctx Context, a Args) Node {
	return &sine{Args: a, phasor: phasor{sr: ctx.SampleRate}}
}

func (n *sine) Process(in [][]float32, out []float32) {
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * n.step(n.At(0, in, i))))
	}
}

type saw struct {
	Args
	phasor
}

func newSaw(ctx Context, a Args) Node {
	return &saw{Args: a, phasor: phasor{sr: ctx.SampleRate}}
}

func (n *saw) Process(in [][]float32, out []float32) {
	for i := range out {
		out[i] = float32(2*n.step(n.At(0, in, i)) - 1)
	}
}

type square struct {
	Args
	phasor
}

func newSquare(ctx Context, a Args) Node {
	return &square{Args: a, phasor: phasor{sr: ctx.SampleRate}}
}

func (n *square) Process(in [][]float32, out []float32) {
	for i := range out {
		if n.step(n.At(0, in, i)) < 0.5 {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
}

// defaultNoiseSeed makes an unseeded noise source reproducible.
const defaultNoiseSeed = 42

// noise is white noise in [-1, 1). The seed is read once at construction;
// later seed changes do not restart the sequence.
type noise struct {
	Args
	rng *rand.Rand
}

func newNoise(_ Context, a Args) Node {
	seed := uint64(defaultNoiseSeed)
	if a.Len() > 0 {
		seed = uint64(int64(a.Param(0).Value))
	}
	return &noise{Args: a, rng: rand.New(rand.NewPCG(seed, seed))}
}

func (n *noise) Process(_ [][]float32, out []float32) {
	for i := range out {
		out[i] = 2*n.rng.Float32() - 1
	}
}
