package compiler

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/patchbay/internal/ir"
)

// Pos is a 1-based source position. Col counts bytes.
type Pos struct {
	Filename string
	Line     int
	Col      int
}

// IsValid reports whether the position points into a source.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

// CompileError reports a malformed program with its location.
type CompileError struct {
	Field   string
	Message string
	Pos     Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		name := e.Pos.Filename
		if name == "" {
			name = "<source>"
		}
		return fmt.Sprintf("%s:%d:%d: %s: %s", name, e.Pos.Line, e.Pos.Col, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

const (
	chainSep   = ":"
	nodeSep    = ">>"
	commentTok = "//"
)

// Compile parses source text into a program.
func Compile(src string) (ir.Program, error) {
	return compile("", src)
}

// CompileFile reads and parses a program file. Errors carry the file name.
func CompileFile(path string) (ir.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ir.Program{}, fmt.Errorf("failed to read program file: %w", err)
	}
	return compile(path, string(data))
}

// pending tracks the chain currently being extended by continuation lines.
type pending struct {
	chain ir.Chain
	pos   Pos
}

func compile(filename, src string) (ir.Program, error) {
	prog := ir.NewProgram()
	var cur *pending

	flush := func() error {
		if cur == nil {
			return nil
		}
		if len(cur.chain.Nodes) == 0 {
			return &CompileError{Field: "chain", Message: fmt.Sprintf("chain %q has no nodes", cur.chain.Name), Pos: cur.pos}
		}
		prog.Add(cur.chain)
		cur = nil
		return nil
	}

	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	for i, raw := range lines {
		line := raw
		if idx := strings.Index(line, commentTok); idx >= 0 {
			line = line[:idx]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineNo := i + 1
		indent := len(line) - len(strings.TrimLeftFunc(line, unicode.IsSpace))
		body := line[indent:]

		if strings.HasPrefix(body, nodeSep) {
			if cur == nil {
				return ir.Program{}, &CompileError{
					Field:   "chain",
					Message: "continuation line without a chain to extend",
					Pos:     Pos{Filename: filename, Line: lineNo, Col: indent + 1},
				}
			}
			off := indent + len(nodeSep)
			if err := parseNodes(&cur.chain, line[off:], Pos{Filename: filename, Line: lineNo, Col: off + 1}); err != nil {
				return ir.Program{}, err
			}
			continue
		}

		if err := flush(); err != nil {
			return ir.Program{}, err
		}

		sep := strings.Index(line, chainSep)
		if sep < 0 {
			return ir.Program{}, &CompileError{
				Field:   "chain",
				Message: fmt.Sprintf("expected %q after chain name", chainSep),
				Pos:     Pos{Filename: filename, Line: lineNo, Col: indent + 1},
			}
		}
		name := strings.TrimSpace(line[:sep])
		headerPos := Pos{Filename: filename, Line: lineNo, Col: indent + 1}
		if err := checkChainName(name, headerPos); err != nil {
			return ir.Program{}, err
		}
		if prog.Has(name) {
			return ir.Program{}, &CompileError{Field: "chain", Message: fmt.Sprintf("duplicate chain name %q", name), Pos: headerPos}
		}

		cur = &pending{chain: ir.Chain{Name: name, Line: lineNo}, pos: headerPos}
		rest := line[sep+len(chainSep):]
		if strings.TrimSpace(rest) == "" {
			// Nodes follow on continuation lines.
			continue
		}
		if err := parseNodes(&cur.chain, rest, Pos{Filename: filename, Line: lineNo, Col: sep + len(chainSep) + 1}); err != nil {
			return ir.Program{}, err
		}
	}

	if err := flush(); err != nil {
		return ir.Program{}, err
	}
	return prog, nil
}

// parseNodes appends the ">>"-separated nodes of text to c.
// start is the position of text's first byte.
func parseNodes(c *ir.Chain, text string, start Pos) error {
	off := 0
	for _, seg := range strings.Split(text, nodeSep) {
		segCol := start.Col + off
		off += len(seg) + len(nodeSep)

		fields := strings.Fields(seg)
		if len(fields) == 0 {
			return &CompileError{Field: "node", Message: "empty node", Pos: Pos{Filename: start.Filename, Line: start.Line, Col: segCol}}
		}
		lead := len(seg) - len(strings.TrimLeftFunc(seg, unicode.IsSpace))

		name := fields[0]
		if !isIdent(name) {
			return &CompileError{
				Field:   "node",
				Message: fmt.Sprintf("invalid node name %q", name),
				Pos:     Pos{Filename: start.Filename, Line: start.Line, Col: segCol + lead},
			}
		}
		search := lead + len(name)
		for _, arg := range fields[1:] {
			idx := search + strings.Index(seg[search:], arg)
			search = idx + len(arg)
			if err := checkArg(arg); err != nil {
				return &CompileError{
					Field:   "argument",
					Message: err.Error(),
					Pos:     Pos{Filename: start.Filename, Line: start.Line, Col: segCol + idx},
				}
			}
		}

		c.Nodes = append(c.Nodes, name)
		c.Params = append(c.Params, ir.NewClause(strings.Join(fields[1:], " ")))
	}
	return nil
}

func checkChainName(name string, pos Pos) error {
	if name == "" {
		return &CompileError{Field: "chain", Message: "empty chain name", Pos: pos}
	}
	ident := strings.TrimPrefix(name, ir.RefPrefix)
	if !isIdent(ident) {
		return &CompileError{Field: "chain", Message: fmt.Sprintf("invalid chain name %q", name), Pos: pos}
	}
	return nil
}

// checkArg accepts a finite number or a chain reference.
func checkArg(arg string) error {
	if strings.HasPrefix(arg, ir.RefPrefix) {
		if !isIdent(strings.TrimPrefix(arg, ir.RefPrefix)) {
			return fmt.Errorf("invalid reference %q", arg)
		}
		return nil
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("expected a number or reference, got %q", arg)
	}
	return nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
