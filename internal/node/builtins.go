package node

import "fmt"

func builtinSpecs() []Spec {
	return []Spec{
		{Name: "sin", MinArgs: 1, MaxArgs: 1, New: newSine},
		{Name: "saw", MinArgs: 1, MaxArgs: 1, New: newSaw},
		{Name: "squ", MinArgs: 1, MaxArgs: 1, New: newSquare},
		{Name: "noise", MinArgs: 0, MaxArgs: 1, Validate: constOnly, New: newNoise},
		{Name: "sig", MinArgs: 1, MaxArgs: 1, New: newSig},
		{Name: "mul", MinArgs: 1, MaxArgs: 1, New: newMul},
		{Name: "add", MinArgs: 1, MaxArgs: 1, New: newAdd},
		{Name: "mix", MinArgs: 1, MaxArgs: -1, RefsOnly: true, New: newMix},
		{Name: "lpf", MinArgs: 1, MaxArgs: 1, Validate: cutoff, New: newLowPass},
		{Name: "hpf", MinArgs: 1, MaxArgs: 1, Validate: cutoff, New: newHighPass},
		{Name: "delayn", MinArgs: 1, MaxArgs: 1, Validate: delaySamples, New: newDelay},
	}
}

func constOnly(_ Context, params []Param) error {
	for k, p := range params {
		if p.IsRef() {
			return &ParamError{Index: k, Token: p.Ref, Message: "seed must be a constant"}
		}
	}
	return nil
}

func cutoff(ctx Context, params []Param) error {
	p := params[0]
	if p.IsRef() {
		return nil
	}
	if p.Value <= 0 || float64(p.Value) >= ctx.SampleRate/2 {
		return &ParamError{Index: 0, Token: formatParam(p),
			Message: fmt.Sprintf("cutoff must be in (0, %g)", ctx.SampleRate/2)}
	}
	return nil
}

// maxDelaySeconds bounds delay lines so a typo cannot allocate gigabytes.
const maxDelaySeconds = 10

func delaySamples(ctx Context, params []Param) error {
	p := params[0]
	if p.IsRef() {
		return nil
	}
	limit := float32(ctx.SampleRate * maxDelaySeconds)
	if p.Value < 0 || p.Value > limit {
		return &ParamError{Index: 0, Token: formatParam(p),
			Message: fmt.Sprintf("delay must be in [0, %g] samples", limit)}
	}
	return nil
}
