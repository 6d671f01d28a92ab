package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerflow/internal/ir"
)

func writeBundle(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadBundle(t *testing.T) {
	b, err := LoadBundle(writeBundle(t, `
timestamp: 1700000100
ops:
  - sender: BOB
    call: approve_and_pay
    args: ["str:f1"]
  - sender: BOB
    pay: 250
  - sender: TREASURY
    transfer: 9
    asset_id: 7
    receiver: HR
`))
	require.NoError(t, err)

	bundle, err := b.Build("ESCROW", 0)
	require.NoError(t, err)

	assert.Equal(t, int64(1700000100), bundle.Timestamp)
	assert.Equal(t, []ir.Op{
		ir.Call("BOB", "ESCROW", "approve_and_pay", ir.Text("f1")),
		ir.Pay("BOB", "ESCROW", 250),
		ir.AssetTransfer("TREASURY", "HR", 7, 9),
	}, bundle.Ops)
}

func TestBundleFile_BuildDefaultsAsset(t *testing.T) {
	b := &BundleFile{Ops: []OpSpec{{Sender: "TREASURY", Transfer: ptr(uint64(5))}}}
	bundle, err := b.Build("PAYROLL", 31566704)
	require.NoError(t, err)
	assert.Equal(t, ir.AssetTransfer("TREASURY", "PAYROLL", 31566704, 5), bundle.Ops[0])
}

func TestLoadBundle_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no ops", "timestamp: 5\n", "ops list is required"},
		{"negative timestamp", "timestamp: -1\nops:\n  - sender: A\n    pay: 1\n", "timestamp must be non-negative"},
		{"unknown field", "opz: []\n", "field opz not found"},
		{"asset on call", "ops:\n  - sender: A\n    call: x\n    asset_id: 3\n", "asset_id is only valid on a transfer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBundle(writeBundle(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func ptr[T any](v T) *T { return &v }
