package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: pass
description: "one chain"
steps:
  - source: "a: sig 0.5"
    expect:
      status: committed
      plan: ["add a[0] sig 0.5"]
  - render: 1
assertions:
  - type: output
    value: 0.5
`

const failingScenario = `name: fail
description: "wrong chain length"
steps:
  - source: "a: sig 0.5"
assertions:
  - type: chain_length
    chain: a
    count: 3
`

// scenarioDirs creates <tmp>/scenarios and returns it with its sibling
// golden directory.
func scenarioDirs(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	scenarios := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	return scenarios, filepath.Join(root, "golden")
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	scenarios, _ := scenarioDirs(t)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	scenarios, _ := scenarioDirs(t)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), scenarios)
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestTestCommandPassAndFail(t *testing.T) {
	scenarios, _ := scenarioDirs(t)
	writeFile(t, scenarios, "pass.yaml", passingScenario)
	writeFile(t, scenarios, "fail.yaml", failingScenario)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ pass")
	assert.Contains(t, out, "✗ fail")
	assert.Contains(t, out, "Assertion failed: chain_length")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	scenarios, _ := scenarioDirs(t)
	writeFile(t, scenarios, "pass.yaml", passingScenario)
	writeFile(t, scenarios, "fail.yaml", failingScenario)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenarios, "--filter", "pa*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	scenarios, golden := scenarioDirs(t)
	writeFile(t, scenarios, "pass.yaml", passingScenario)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenarios, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "golden updated")

	data, err := os.ReadFile(filepath.Join(golden, "pass.golden"))
	require.NoError(t, err)
	assert.Equal(t, "# pass\nstep 0 edit committed generation=1\n  add a[0] sig 0.5\nstep 1 render blocks=1 generation=1\n", string(data))

	_, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenarios)
	require.NoError(t, err)

	writeFile(t, golden, "pass.golden", "# pass\n")
	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenarios)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandCustomGoldenDirJSON(t *testing.T) {
	scenarios, _ := scenarioDirs(t)
	writeFile(t, scenarios, "pass.yaml", passingScenario)
	golden := t.TempDir()
	writeFile(t, golden, "pass.golden", "# stale\n")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json", Verbose: true}), scenarios, "--golden", golden)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "trace differs")
}

func TestTestCommandLoadError(t *testing.T) {
	scenarios, _ := scenarioDirs(t)
	writeFile(t, scenarios, "broken.yaml", "name: broken\n")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenarios)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "Load error")
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "../harness/testdata/scenarios")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestFindScenarioFiles(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test1.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test2.yml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "ignore.txt"), []byte(""), 0644))

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "delete-chain.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "delete-all.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "sidechain.yaml"), []byte(""), 0644))

	files, err := findScenarioFiles(tmpDir, "delete-*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	for _, f := range files {
		assert.Contains(t, filepath.Base(f), "delete-")
	}
}

func TestFindScenarioFilesBadFilter(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.yaml"), []byte(""), 0644))

	_, err := findScenarioFiles(tmpDir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}
