package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes a scenario next to an escrow config and returns its
// path. The content may refer to the config as "escrow.cue".
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "variant: \"escrow\"\nadmin: \"ADMIN\"\napp_address: \"ESCROW\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "escrow.cue"), []byte(cfg), 0644))
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
config: escrow.cue
accounts:
  - address: BOB
    amount: 100
flow:
  - ops:
      - sender: ALICE
        call: get_stats
    expect:
      logs: ["total_files:0,total_value:0"]
assertions:
  - type: trace_count
    opcode: get_stats
    count: 1
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "escrow.cue"), scenario.Config)
	require.Len(t, scenario.Accounts, 1)
	assert.Nil(t, scenario.Accounts[0].AssetID)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, "get_stats", scenario.Flow[0].Ops[0].Call)
	assert.Equal(t, []string{"total_files:0,total_value:0"}, scenario.Flow[0].Expect.Logs)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_TestdataScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		_, err := LoadScenario(path)
		assert.NoError(t, err, path)
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	path := writeScenario(t, "name: [unterminated\n")
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "assertion instead of assertions"
config: escrow.cue
flow:
  - ops:
      - sender: ALICE
        call: get_stats
assertion:
  - type: trace_count
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenario_Invalid(t *testing.T) {
	const flow = `
flow:
  - ops:
      - sender: ALICE
        call: get_stats
`
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nconfig: escrow.cue\n" + flow,
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nconfig: escrow.cue\n" + flow,
			wantErr: "description is required",
		},
		{
			name:    "missing config",
			content: "name: n\ndescription: d\n" + flow,
			wantErr: "config is required",
		},
		{
			name:    "config not found",
			content: "name: n\ndescription: d\nconfig: missing.cue\n" + flow,
			wantErr: "config file not found",
		},
		{
			name:    "missing flow",
			content: "name: n\ndescription: d\nconfig: escrow.cue\n",
			wantErr: "flow list is required",
		},
		{
			name: "empty ops",
			content: `name: n
description: d
config: escrow.cue
flow:
  - ops: []
`,
			wantErr: "flow[0]: ops list is required",
		},
		{
			name: "call and pay",
			content: `name: n
description: d
config: escrow.cue
flow:
  - ops:
      - sender: ALICE
        call: get_stats
        pay: 5
`,
			wantErr: "exactly one of call, pay and transfer",
		},
		{
			name: "bad sender",
			content: `name: n
description: d
config: escrow.cue
flow:
  - ops:
      - sender: "A:B"
        call: get_stats
`,
			wantErr: "sender",
		},
		{
			name: "bad arg",
			content: `name: n
description: d
config: escrow.cue
flow:
  - ops:
      - sender: ALICE
        call: get_file_request
        args: ["f1"]
`,
			wantErr: "want <type>:<value>",
		},
		{
			name: "args on payment",
			content: `name: n
description: d
config: escrow.cue
flow:
  - ops:
      - sender: ALICE
        pay: 5
        args: ["u64:1"]
`,
			wantErr: "args are only valid on a call",
		},
		{
			name: "negative advance",
			content: `name: n
description: d
config: escrow.cue
flow:
  - advance: -5
    ops:
      - sender: ALICE
        call: get_stats
`,
			wantErr: "advance must be non-negative",
		},
		{
			name: "unknown outcome",
			content: `name: n
description: d
config: escrow.cue
flow:
  - ops:
      - sender: ALICE
        call: get_stats
    expect:
      outcome: maybe
`,
			wantErr: `unknown outcome "maybe"`,
		},
		{
			name: "code without rejection",
			content: `name: n
description: d
config: escrow.cue
flow:
  - ops:
      - sender: ALICE
        call: get_stats
    expect:
      code: NOT_FOUND
`,
			wantErr: "code requires outcome",
		},
		{
			name: "setup with expect",
			content: `name: n
description: d
config: escrow.cue
setup:
  - ops:
      - sender: ALICE
        call: get_stats
    expect:
      outcome: accepted
` + flow,
			wantErr: "setup steps cannot carry expect",
		},
		{
			name: "unknown assertion",
			content: "name: n\ndescription: d\nconfig: escrow.cue\n" + flow + `
assertions:
  - type: final_state
`,
			wantErr: `unknown assertion type "final_state"`,
		},
		{
			name: "balance without amount",
			content: "name: n\ndescription: d\nconfig: escrow.cue\n" + flow + `
assertions:
  - type: balance
    address: BOB
`,
			wantErr: "amount is required for balance",
		},
		{
			name: "report without lines",
			content: "name: n\ndescription: d\nconfig: escrow.cue\n" + flow + `
assertions:
  - type: report
    caller: ALICE
    call: get_stats
`,
			wantErr: "lines are required for report",
		},
		{
			name: "journal without count",
			content: "name: n\ndescription: d\nconfig: escrow.cue\n" + flow + `
assertions:
  - type: journal_length
`,
			wantErr: "count must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
