package harness

import (
	"fmt"
	"strings"
)

// Trace event kinds.
const (
	KindEdit   = "edit"
	KindRender = "render"
	KindSend   = "send"
)

// Step outcomes.
const (
	StatusCommitted = "committed"
	StatusRejected  = "rejected"
	StatusOK        = "ok"
	StatusError     = "error"
)

// TraceEvent records what one step did.
type TraceEvent struct {
	Step       int      `json:"step"`
	Kind       string   `json:"kind"`
	Status     string   `json:"status,omitempty"`
	Code       string   `json:"code,omitempty"`
	Generation int64    `json:"generation"`
	Plan       []string `json:"plan,omitempty"`   // edit: plan trace, execution order
	Target     string   `json:"target,omitempty"` // send: "chain[position]"
	Blocks     int      `json:"blocks,omitempty"` // render
}

// String renders the event as one header line plus one indented line per
// plan operation.
func (e TraceEvent) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "step %d %s", e.Step, e.Kind)
	switch e.Kind {
	case KindRender:
		fmt.Fprintf(&b, " blocks=%d", e.Blocks)
	case KindSend:
		fmt.Fprintf(&b, " %s", e.Target)
	}
	if e.Status != "" {
		fmt.Fprintf(&b, " %s", e.Status)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " %s", e.Code)
	}
	fmt.Fprintf(&b, " generation=%d", e.Generation)
	for _, line := range e.Plan {
		fmt.Fprintf(&b, "\n  %s", line)
	}
	return b.String()
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per step.
	Trace []TraceEvent `json:"trace"`

	// Errors lists failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step's event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// TraceText renders the trace for golden comparison.
func (r *Result) TraceText(name string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", name)
	for _, ev := range r.Trace {
		b.WriteString(ev.String())
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
