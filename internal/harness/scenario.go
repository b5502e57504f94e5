package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of edit-cycle steps followed by assertions on the
// final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// BlockSize and SampleRate configure the engine. Zero means the
	// harness defaults (8 samples, 48000 Hz).
	BlockSize  int     `yaml:"block_size,omitempty"`
	SampleRate float64 `yaml:"sample_rate,omitempty"`

	// SessionID fixes the journaled session ID.
	// Default: testutil.DefaultSessionID
	SessionID string `yaml:"session_id,omitempty"`

	// Steps run in order. Each has exactly one of source, render, send.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scenario action.
type Step struct {
	// Source submits a program edit.
	Source *string `yaml:"source,omitempty"`

	// Render renders this many blocks.
	Render int `yaml:"render,omitempty"`

	// Send delivers a control message.
	Send *SendStep `yaml:"send,omitempty"`

	// Expect checks the outcome of a source or send step.
	// If nil, edits must commit and sends must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// SendStep addresses a control message.
type SendStep struct {
	Chain    string `yaml:"chain"`
	Position int    `yaml:"position"`

	// Param selects one argument; omitted replaces the whole clause.
	Param *int   `yaml:"param,omitempty"`
	Value string `yaml:"value"`
}

// Expect is the expected outcome of a step.
type Expect struct {
	// Status: committed or rejected for edits, ok or error for sends.
	Status string `yaml:"status"`

	// Code is the expected error code when the step fails.
	Code string `yaml:"code,omitempty"`

	// Plan is the exact plan trace of a committed edit. An empty list
	// expects an empty plan; omitted skips the check.
	Plan []string `yaml:"plan,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Chain names the chain (chain_length, chain_absent, chain_edges).
	Chain string `yaml:"chain,omitempty"`

	// Count is the expected number (chain_length, node_count, generation).
	Count int `yaml:"count,omitempty"`

	// Edges are the expected "from->to" labels (chain_edges).
	Edges []string `yaml:"edges,omitempty"`

	// Node addresses a node as "chain[position]" (same_node).
	Node string `yaml:"node,omitempty"`

	// Was addresses the node after Step; defaults to Node (same_node).
	Was  string `yaml:"was,omitempty"`
	Step int    `yaml:"step,omitempty"`

	// Value and Tolerance bound the last rendered block (output).
	Value     float64 `yaml:"value,omitempty"`
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Line is a plan trace line (plan_contains).
	Line string `yaml:"line,omitempty"`

	// Committed and Rejected count journaled cycles (journal).
	Committed int `yaml:"committed,omitempty"`
	Rejected  int `yaml:"rejected,omitempty"`
}

// Assertion type constants.
const (
	AssertChainLength  = "chain_length"
	AssertChainAbsent  = "chain_absent"
	AssertChainEdges   = "chain_edges"
	AssertNodeCount    = "node_count"
	AssertGeneration   = "generation"
	AssertSameNode     = "same_node"
	AssertOutput       = "output"
	AssertPlanContains = "plan_contains"
	AssertJournal      = "journal"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.BlockSize < 0 {
		return fmt.Errorf("block_size must be positive")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	kinds := 0
	if step.Source != nil {
		kinds++
	}
	if step.Render != 0 {
		kinds++
	}
	if step.Send != nil {
		kinds++
	}
	if kinds != 1 {
		return fmt.Errorf("steps[%d]: exactly one of source, render, send is required", i)
	}

	if step.Render < 0 {
		return fmt.Errorf("steps[%d]: render must be positive", i)
	}
	if step.Send != nil && step.Send.Chain == "" {
		return fmt.Errorf("steps[%d]: send.chain is required", i)
	}

	if step.Expect == nil {
		return nil
	}
	switch {
	case step.Render != 0:
		return fmt.Errorf("steps[%d]: render steps take no expect", i)
	case step.Source != nil:
		if step.Expect.Status != StatusCommitted && step.Expect.Status != StatusRejected {
			return fmt.Errorf("steps[%d].expect: status must be committed or rejected", i)
		}
		if step.Expect.Plan != nil && step.Expect.Status == StatusRejected {
			return fmt.Errorf("steps[%d].expect: a rejected edit has no plan", i)
		}
	case step.Send != nil:
		if step.Expect.Status != StatusOK && step.Expect.Status != StatusError {
			return fmt.Errorf("steps[%d].expect: status must be ok or error", i)
		}
		if step.Expect.Plan != nil {
			return fmt.Errorf("steps[%d].expect: send steps have no plan", i)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertChainLength, AssertChainAbsent, AssertChainEdges:
		if a.Chain == "" {
			return fmt.Errorf("assertions[%d]: chain is required for %s", index, a.Type)
		}
	case AssertNodeCount, AssertGeneration, AssertPlanContains, AssertJournal, AssertOutput:
	case AssertSameNode:
		if _, _, err := parseNodeRef(a.Node); err != nil {
			return fmt.Errorf("assertions[%d]: node: %w", index, err)
		}
		if a.Was != "" {
			if _, _, err := parseNodeRef(a.Was); err != nil {
				return fmt.Errorf("assertions[%d]: was: %w", index, err)
			}
		}
		if a.Step < 0 || a.Step >= steps {
			return fmt.Errorf("assertions[%d]: step %d out of range", index, a.Step)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Type == AssertPlanContains && a.Line == "" {
		return fmt.Errorf("assertions[%d]: line is required for plan_contains", index)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}

// parseNodeRef splits "chain[position]".
func parseNodeRef(ref string) (string, int, error) {
	open := strings.LastIndexByte(ref, '[')
	if open <= 0 || !strings.HasSuffix(ref, "]") {
		return "", 0, fmt.Errorf("%q is not chain[position]", ref)
	}
	pos, err := strconv.Atoi(ref[open+1 : len(ref)-1])
	if err != nil || pos < 0 {
		return "", 0, fmt.Errorf("%q is not chain[position]", ref)
	}
	return ref[:open], pos, nil
}
