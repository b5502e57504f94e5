package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir is where golden traces live, relative to the package under
// test.
const GoldenDir = "testdata/golden"

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario could not run. Expectation and
// assertion failures are reported through t.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Errorf("%s: %s", scenario.Name, msg)
	}
	AssertGolden(t, scenario.Name, result)
	return nil
}

// AssertGolden compares an already computed result's trace against the
// golden file for name.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, result.TraceText(name))
}

// GoldenPath returns the golden file for a scenario under dir.
func GoldenPath(dir, name string) string {
	return filepath.Join(dir, name+".golden")
}

// CompareGolden checks result against the golden file for name in dir,
// outside of a test.
func CompareGolden(dir, name string, result *Result) error {
	want, err := os.ReadFile(GoldenPath(dir, name))
	if err != nil {
		return fmt.Errorf("read golden: %w", err)
	}
	if got := result.TraceText(name); !bytes.Equal(got, want) {
		return fmt.Errorf("trace differs from %s:\n--- want\n%s--- got\n%s", GoldenPath(dir, name), want, got)
	}
	return nil
}

// WriteGolden stores result's trace as the golden file for name in dir.
func WriteGolden(dir, name string, result *Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write golden: %w", err)
	}
	if err := os.WriteFile(GoldenPath(dir, name), result.TraceText(name), 0o644); err != nil {
		return fmt.Errorf("write golden: %w", err)
	}
	return nil
}
