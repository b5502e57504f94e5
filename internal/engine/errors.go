package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/patchbay/internal/compiler"
	"github.com/roach88/patchbay/internal/node"
)

// UpdateError represents an edit cycle the engine refused, or a control
// message it could not deliver.
//
// Every UpdateError is decided before the graph is mutated: when one is
// returned, the committed program, graph, and chain index are unchanged.
//
// UpdateError includes structured fields for diagnostics and for the edit
// journal.
type UpdateError struct {
	// Code identifies the error category.
	Code UpdateErrorCode

	// Message is a human-readable description.
	Message string

	// Chain identifies the affected chain, if any.
	Chain string

	// Position is the 0-based slot in Chain, or -1.
	Position int

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause (e.g. a *compiler.CompileError).
	Err error
}

// UpdateErrorCode categorizes update errors.
type UpdateErrorCode string

const (
	// ErrCodeParseFailed indicates the source text did not compile.
	ErrCodeParseFailed UpdateErrorCode = "PARSE_FAILED"

	// ErrCodeRefUnresolved indicates a ~reference names no usable chain.
	ErrCodeRefUnresolved UpdateErrorCode = "REF_UNRESOLVED"

	// ErrCodeRefCycle indicates chains that read each other's output.
	ErrCodeRefCycle UpdateErrorCode = "REF_CYCLE"

	// ErrCodeUnknownNode indicates a node name with no constructor.
	ErrCodeUnknownNode UpdateErrorCode = "UNKNOWN_NODE"

	// ErrCodeBadParams indicates arguments a node rejected.
	ErrCodeBadParams UpdateErrorCode = "BAD_PARAMS"

	// ErrCodeNotFound indicates a chain or position that does not exist.
	ErrCodeNotFound UpdateErrorCode = "NOT_FOUND"

	// ErrCodePlanInvariant indicates a plan that does not fit the live index.
	ErrCodePlanInvariant UpdateErrorCode = "PLAN_INVARIANT"
)

// Error implements the error interface.
func (e *UpdateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	switch {
	case e.Chain != "" && e.Position >= 0:
		fmt.Fprintf(&b, " (chain=%s, position=%d)", e.Chain, e.Position)
	case e.Chain != "":
		fmt.Fprintf(&b, " (chain=%s)", e.Chain)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *UpdateError) Unwrap() error {
	return e.Err
}

// Code returns the UpdateErrorCode of err, or "" if err is not an
// UpdateError. Uses errors.As to handle wrapped errors.
func Code(err error) UpdateErrorCode {
	var ue *UpdateError
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}

// IsRefError returns true if the error is a reference resolution or
// reference cycle error.
func IsRefError(err error) bool {
	c := Code(err)
	return c == ErrCodeRefUnresolved || c == ErrCodeRefCycle
}

// IsNotFound returns true if the error is a lookup failure.
func IsNotFound(err error) bool {
	return Code(err) == ErrCodeNotFound
}

// IsInvariantError returns true if the error reports a plan that does not
// fit the live chain index.
func IsInvariantError(err error) bool {
	return Code(err) == ErrCodePlanInvariant
}

// NewParseError wraps a compile failure.
func NewParseError(err error) *UpdateError {
	ue := &UpdateError{
		Code:     ErrCodeParseFailed,
		Message:  err.Error(),
		Position: -1,
		Err:      err,
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) && ce.Pos.IsValid() {
		ue.Message = ce.Message
		ue.Details = map[string]string{
			"field":  ce.Field,
			"line":   fmt.Sprintf("%d", ce.Pos.Line),
			"column": fmt.Sprintf("%d", ce.Pos.Col),
		}
	}
	return ue
}

// NewRefUnresolvedError creates an UpdateError for a reference to a chain
// that is missing or empty in the new program.
func NewRefUnresolvedError(chain string, position int, ref string) *UpdateError {
	return &UpdateError{
		Code:     ErrCodeRefUnresolved,
		Message:  fmt.Sprintf("reference %s does not name a chain", ref),
		Chain:    chain,
		Position: position,
		Details:  map[string]string{"ref": ref},
	}
}

// NewRefCycleError creates an UpdateError for a reference cycle.
func NewRefCycleError(c compiler.RefCycle) *UpdateError {
	return &UpdateError{
		Code:     ErrCodeRefCycle,
		Message:  c.Message,
		Chain:    c.Path[0],
		Position: -1,
		Details:  map[string]string{"path": strings.Join(c.Path, " ")},
	}
}

// NewFactoryError creates an UpdateError for a node the factory refused to
// build or reconfigure.
func NewFactoryError(chain string, position int, name string, err error) *UpdateError {
	code := ErrCodeBadParams
	if errors.Is(err, node.ErrUnknownNode) {
		code = ErrCodeUnknownNode
	}
	return &UpdateError{
		Code:     code,
		Message:  err.Error(),
		Chain:    chain,
		Position: position,
		Details:  map[string]string{"node": name},
		Err:      err,
	}
}

// NewNotFoundError creates an UpdateError for a missing chain or position.
func NewNotFoundError(chain string, position int) *UpdateError {
	return &UpdateError{
		Code:     ErrCodeNotFound,
		Message:  "no node at chain position",
		Chain:    chain,
		Position: position,
	}
}

// NewInvariantError creates an UpdateError for a plan that would index
// outside the live chain index.
func NewInvariantError(chain string, position int, format string, args ...any) *UpdateError {
	return &UpdateError{
		Code:     ErrCodePlanInvariant,
		Message:  fmt.Sprintf(format, args...),
		Chain:    chain,
		Position: position,
	}
}
