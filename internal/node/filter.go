package node

import "math"

// onePole is a one-pole low-pass section.
type onePole struct {
	sr float64
	y  float32
}

func (f *onePole) coef(cutoff float32) float32 {
	return float32(1 - math.Exp(-2*math.Pi*float64(cutoff)/f.sr))
}

func (f *onePole) tick(x, a float32) float32 {
	f.y += a * (x - f.y)
	return f.y
}

// render filters src into out; hp selects the high-pass output.
func (f *onePole) render(a *Args, in [][]float32, out []float32, hp bool) {
	src := a.Source(in)
	if src == nil {
		clear(out)
		return
	}
	ref := a.Param(0).IsRef()
	k := f.coef(a.Param(0).Value)
	for i := range out {
		if ref {
			k = f.coef(a.At(0, in, i))
		}
		lp := f.tick(src[i], k)
		if hp {
			out[i] = src[i] - lp
		} else {
			out[i] = lp
		}
	}
}

type lowPass struct {
	Args
	onePole
}

func newLowPass(ctx Context, a Args) Node {
	return &lowPass{Args: a, onePole: onePole{sr: ctx.SampleRate}}
}

func (n *lowPass) Process(in [][]float32, out []float32) {
	n.render(&n.Args, in, out, false)
}

type highPass struct {
	Args
	onePole
}

func newHighPass(ctx Context, a Args) Node {
	return &highPass{Args: a, onePole: onePole{sr: ctx.SampleRate}}
}

func (n *highPass) Process(in [][]float32, out []float32) {
	n.render(&n.Args, in, out, true)
}

// delay is an integer-sample delay line. A referenced delay time is
// clamped to the line length, which is at least one second.
type delay struct {
	Args
	buf []float32
	pos int
}

func newDelay(ctx Context, a Args) Node {
	n := &delay{Args: a}
	n.grow(delayLen(ctx, a))
	return n
}

func delayLen(ctx Context, a Args) int {
	size := int(ctx.SampleRate) + 1
	if p := a.Param(0); !p.IsRef() && int(p.Value)+1 > size {
		size = int(p.Value) + 1
	}
	return size
}

// Send grows the line when a longer constant delay arrives, keeping the
// recorded history.
func (n *delay) Send(msg Message) error {
	if err := n.Args.Send(msg); err != nil {
		return err
	}
	n.grow(delayLen(n.ctx, n.Args))
	return nil
}

func (n *delay) grow(size int) {
	if size <= len(n.buf) {
		return
	}
	nb := make([]float32, size)
	off := size - len(n.buf)
	k := copy(nb[off:], n.buf[n.pos:])
	copy(nb[off+k:], n.buf[:n.pos])
	n.buf = nb
	n.pos = 0
}

func (n *delay) Process(in [][]float32, out []float32) {
	src := n.Source(in)
	size := len(n.buf)
	for i := range out {
		var x float32
		if src != nil {
			x = src[i]
		}
		n.buf[n.pos] = x
		d := int(n.At(0, in, i))
		d = max(0, min(d, size-1))
		r := n.pos - d
		if r < 0 {
			r += size
		}
		out[i] = n.buf[r]
		n.pos++
		if n.pos == size {
			n.pos = 0
		}
	}
}
