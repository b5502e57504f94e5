package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/patchbay/internal/harness"
)

// TestOptions are the test command's flags.
type TestOptions struct {
	*RootOptions
	Update bool   // rewrite golden traces instead of comparing
	Filter string // glob over scenario file base names
	Golden string
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult aggregates a test run.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand returns the test command, which runs scenario files
// through the harness.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run edit scenarios",
		Long: `Run YAML edit scenarios against a fresh engine and in-memory journal.

Each scenario's step expectations and assertions are checked, and its plan
trace is compared against <golden-dir>/<name>.golden when that file exists.
The golden directory defaults to a "golden" directory next to the
scenarios directory.

Exits 1 when any scenario fails and 2 when the directory or a flag is
invalid.

Examples:
  patchbay test ./testdata/scenarios
  patchbay test ./testdata/scenarios --filter "delete-*"
  patchbay test ./testdata/scenarios --update
  patchbay test ./testdata/scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden traces from this run")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name matches this glob")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "golden directory (default: <scenarios-dir>/../golden)")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	goldenDir := opts.Golden
	if goldenDir == "" {
		goldenDir = filepath.Join(filepath.Dir(filepath.Clean(scenariosDir)), "golden")
	}

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	if len(files) == 0 && opts.Format != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	for _, file := range files {
		r, note := runScenario(file, goldenDir, opts)
		if opts.Format != "json" {
			printScenario(cmd.OutOrStdout(), r, note)
		}
		result.Scenarios = append(result.Scenarios, r)
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	return reportTests(cmd, opts.Format, result)
}

// findScenarioFiles walks dir for *.yaml and *.yml files whose base name
// matches the optional glob filter.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario loads and runs one scenario file. Without --update the trace
// is compared against the golden file when one exists; a scenario without
// a golden file is judged on its expectations and assertions alone. note
// is extra text for the pass line.
func runScenario(file, goldenDir string, opts *TestOptions) (r ScenarioResult, note string) {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{Name: filepath.Base(file), Errors: []string{fmt.Sprintf("Load error: %v", err)}}, ""
	}
	r.Name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		r.Errors = []string{fmt.Sprintf("Execution error: %v", err)}
		return r, ""
	}

	if opts.Update {
		if err := harness.WriteGolden(goldenDir, scenario.Name, result); err != nil {
			r.Errors = []string{fmt.Sprintf("Golden update error: %v", err)}
			return r, ""
		}
		r.Pass = true
		return r, "golden updated"
	}

	r.Errors = result.Errors
	if _, err := os.Stat(harness.GoldenPath(goldenDir, scenario.Name)); err == nil {
		if err := harness.CompareGolden(goldenDir, scenario.Name, result); err != nil {
			msg := "trace does not match golden file (run with --update to regenerate)"
			if opts.Verbose {
				msg = err.Error()
			}
			r.Errors = append(r.Errors, msg)
		}
	}
	r.Pass = len(r.Errors) == 0
	return r, ""
}

func printScenario(w io.Writer, r ScenarioResult, note string) {
	switch {
	case !r.Pass:
		fmt.Fprintf(w, "✗ %s\n", r.Name)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	case note != "":
		fmt.Fprintf(w, "✓ %s (%s)\n", r.Name, note)
	default:
		fmt.Fprintf(w, "✓ %s\n", r.Name)
	}
}

// reportTests prints the summary, or the whole result as a JSON envelope,
// and turns any failed scenario into ExitFailure.
func reportTests(cmd *cobra.Command, format string, result TestResult) error {
	var failure *ExitError
	if result.Failed > 0 {
		failure = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	w := cmd.OutOrStdout()
	if format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if failure != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_TEST_FAILED", Message: failure.Message}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
		if failure == nil {
			fmt.Fprintln(w, "✓ All scenarios passed")
		}
	}

	if failure != nil {
		return failure
	}
	return nil
}
