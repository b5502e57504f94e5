package node

type sig struct{ Args }

func newSig(_ Context, a Args) Node { return &sig{Args: a} }

func (n *sig) Process(in [][]float32, out []float32) {
	for i := range out {
		out[i] = n.At(0, in, i)
	}
}

// mul scales its source. At the head of a chain it outputs silence.
type mul struct{ Args }

func newMul(_ Context, a Args) Node { return &mul{Args: a} }

func (n *mul) Process(in [][]float32, out []float32) {
	src := n.Source(in)
	if src == nil {
		clear(out)
		return
	}
	for i := range out {
		out[i] = src[i] * n.At(0, in, i)
	}
}

// add offsets its source. At the head of a chain it outputs the offset.
type add struct{ Args }

func newAdd(_ Context, a Args) Node { return &add{Args: a} }

func (n *add) Process(in [][]float32, out []float32) {
	src := n.Source(in)
	for i := range out {
		v := n.At(0, in, i)
		if src != nil {
			v += src[i]
		}
		out[i] = v
	}
}

// mix sums its source and every referenced chain.
type mix struct{ Args }

func newMix(_ Context, a Args) Node { return &mix{Args: a} }

func (n *mix) Process(in [][]float32, out []float32) {
	src := n.Source(in)
	for i := range out {
		var v float32
		if src != nil {
			v = src[i]
		}
		for k := 0; k < n.Len(); k++ {
			v += n.At(k, in, i)
		}
		out[i] = v
	}
}

// Sum is the aggregation node: it adds every input block. It is created
// by the engine and never appears in a registry.
type Sum struct{}

// NewSum creates an aggregation node.
func NewSum() *Sum { return &Sum{} }

func (s *Sum) Process(in [][]float32, out []float32) {
	clear(out)
	for _, b := range in {
		for i := range out {
			out[i] += b[i]
		}
	}
}

func (s *Sum) Send(Message) error { return ErrNoParams }
