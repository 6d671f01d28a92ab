package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ledgerflow/internal/ir"
)

// canonical converts an event to the value form ir.MarshalCanonical
// accepts. Code and seq are omitted when zero so accepted and rejected
// steps stay distinguishable at a glance.
func (e TraceEvent) canonical() ir.Object {
	ops := make(ir.Array, len(e.Ops))
	for i, op := range e.Ops {
		ops[i] = ir.String(op)
	}
	logs := make(ir.Array, len(e.Logs))
	for i, line := range e.Logs {
		logs[i] = ir.String(line)
	}
	settlements := make(ir.Array, len(e.Settlements))
	for i, s := range e.Settlements {
		settlements[i] = ir.SettlementObject(s)
	}

	obj := ir.Object{
		"step":        ir.Int(e.Step),
		"ops":         ops,
		"outcome":     ir.String(e.Outcome),
		"logs":        logs,
		"settlements": settlements,
	}
	if e.Code != "" {
		obj["code"] = ir.String(e.Code)
	}
	if e.Seq != 0 {
		obj["seq"] = ir.Int(e.Seq)
	}
	return obj
}

// MarshalTrace renders a trace as JSON Lines: one canonical JSON object per
// step, each terminated by a newline.
func MarshalTrace(trace []TraceEvent) ([]byte, error) {
	var buf bytes.Buffer
	for _, event := range trace {
		line, err := ir.MarshalCanonical(event.canonical())
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)

	return nil
}
