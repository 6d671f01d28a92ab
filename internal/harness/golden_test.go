package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerflow/internal/ir"
)

// The golden files under testdata/golden pin the full trace of each
// testdata scenario. Regenerate with:
//
//	go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"escrow_dispute", "loan_repayment", "payroll_cycle"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestAssertGolden_FromResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/escrow_dispute.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, "escrow_dispute", result))
}

func TestMarshalTrace(t *testing.T) {
	trace := []TraceEvent{
		{
			Step:    1,
			Ops:     []string{"drawdown"},
			Outcome: OutcomeAccepted,
			Seq:     5,
			Logs:    []string{"loan:1,status:active"},
			Settlements: []ir.Settlement{
				{Receiver: "BORROWER", Amount: 1000, Opcode: "drawdown"},
			},
		},
		{
			Step:        2,
			Ops:         []string{"pay", "repay"},
			Outcome:     OutcomeRejected,
			Code:        "PAYMENT_MISMATCH",
			Logs:        []string{},
			Settlements: []ir.Settlement{},
		},
	}

	data, err := MarshalTrace(trace)
	require.NoError(t, err)

	want := `{"logs":["loan:1,status:active"],"ops":["drawdown"],"outcome":"accepted","seq":5,"settlements":[{"amount":1000,"asset_id":0,"opcode":"drawdown","receiver":"BORROWER"}],"step":1}` + "\n" +
		`{"code":"PAYMENT_MISMATCH","logs":[],"ops":["pay","repay"],"outcome":"rejected","settlements":[],"step":2}` + "\n"
	assert.Equal(t, want, string(data))
}

func TestMarshalTrace_Empty(t *testing.T) {
	data, err := MarshalTrace(nil)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestMarshalTrace_NilSlicesRenderEmpty(t *testing.T) {
	data, err := MarshalTrace([]TraceEvent{{Step: 1, Ops: []string{"get_stats"}, Outcome: OutcomeAccepted, Seq: 2}})
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"logs":[]`))
	assert.True(t, strings.Contains(string(data), `"settlements":[]`))
}
