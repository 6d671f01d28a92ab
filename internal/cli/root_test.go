package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const escrowConfig = `variant:     "escrow"
admin:       "ADMIN"
app_address: "ESCROW"
`

// workspace is a temp directory holding a config and a database path.
type workspace struct {
	dir    string
	config string
	db     string
}

func newWorkspace(t *testing.T, config string) *workspace {
	t.Helper()
	dir := t.TempDir()
	ws := &workspace{
		dir:    dir,
		config: filepath.Join(dir, "config.cue"),
		db:     filepath.Join(dir, "ledger.db"),
	}
	require.NoError(t, os.WriteFile(ws.config, []byte(config), 0644))
	return ws
}

// file writes content under the workspace and returns its path.
func (ws *workspace) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(ws.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ledgerflow", cmd.Use)
	assert.Contains(t, cmd.Long, "escrow, microloan and payroll")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "run", "report", "journal", "replay", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestRequiredFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"run", []string{"config"}},
		{"report", []string{"config", "caller"}},
		{"journal", []string{"db"}},
		{"replay", []string{"config"}},
	}

	cmd := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			for _, name := range tt.flags {
				f := sub.Flags().Lookup(name)
				require.NotNil(t, f, "flag %s", name)
				assert.Equal(t, []string{"true"}, f.Annotations["cobra_annotation_bash_completion_one_required_flag"], "flag %s should be required", name)
			}
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	ws := newWorkspace(t, escrowConfig)
	_, err := execute(t, "validate", ws.config, "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}
