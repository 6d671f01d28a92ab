package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ledgerflow/internal/ir"
)

// Scenario defines a conformance test scenario.
// Scenarios drive one application variant through a flow of bundles and
// assert on the resulting trace, reports and balances.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is the CUE configuration selecting the variant.
	// Relative paths are resolved against the scenario file location.
	Config string `yaml:"config"`

	// Accounts are funded on the simulated ledger before anything runs.
	Accounts []Funding `yaml:"accounts,omitempty"`

	// Setup bundles run after the instance is created and must be
	// accepted. They are not traced.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the traced bundles, each with an optional expectation.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace, reports and balances.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Funding is an opening balance.
type Funding struct {
	Address string `yaml:"address"`

	// AssetID defaults to the configured asset.
	AssetID *uint64 `yaml:"asset_id,omitempty"`

	Amount uint64 `yaml:"amount"`
}

// Step is one atomic bundle.
type Step struct {
	// Advance moves the block clock forward by this many seconds before the
	// bundle is stamped.
	Advance int64 `yaml:"advance,omitempty"`

	Ops []OpSpec `yaml:"ops"`

	// Expect specifies the expected outcome. If nil, the bundle must be
	// accepted.
	Expect *Expect `yaml:"expect,omitempty"`
}

// OpSpec describes one operation. Exactly one of Call, Pay and Transfer is
// set.
type OpSpec struct {
	Sender string `yaml:"sender"`

	// Call is an app call opcode; Args are typed textual arguments such as
	// "u64:100", "str:f1" or "addr:BOB".
	Call string   `yaml:"call,omitempty"`
	Args []string `yaml:"args,omitempty"`

	// Pay is a native payment amount.
	Pay *uint64 `yaml:"pay,omitempty"`

	// Transfer is an asset transfer amount. AssetID defaults to the
	// configured asset.
	Transfer *uint64 `yaml:"transfer,omitempty"`
	AssetID  *uint64 `yaml:"asset_id,omitempty"`

	// Receiver defaults to the application address.
	Receiver string `yaml:"receiver,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Outcome is "accepted" (the default) or "rejected".
	Outcome string `yaml:"outcome,omitempty"`

	// Code is the expected rejection code, e.g. "PERMISSION_DENIED".
	Code string `yaml:"code,omitempty"`

	// Logs, when present, must equal the bundle's log lines exactly.
	Logs []string `yaml:"logs,omitempty"`

	// Settlements, when present, must equal the staged settlements in order.
	Settlements []SettlementSpec `yaml:"settlements,omitempty"`
}

// SettlementSpec is an expected outbound transfer.
type SettlementSpec struct {
	Receiver string `yaml:"receiver"`
	Amount   uint64 `yaml:"amount"`
}

// Assertion validates the state after the flow.
type Assertion struct {
	// Type specifies the assertion type:
	// - "report": run a read-only call and compare its lines
	// - "balance": check a simulated ledger balance
	// - "trace_count": count accepted occurrences of an opcode
	// - "trace_order": check opcodes were accepted in order
	// - "journal_length": count journaled bundles, including the create
	Type string `yaml:"type"`

	// Caller, Call and Args describe the read-only call (report).
	Caller string   `yaml:"caller,omitempty"`
	Call   string   `yaml:"call,omitempty"`
	Args   []string `yaml:"args,omitempty"`

	// Lines are the expected report lines (report).
	Lines []string `yaml:"lines,omitempty"`

	// Address, AssetID and Amount describe a holding (balance). AssetID
	// defaults to the configured asset.
	Address string  `yaml:"address,omitempty"`
	AssetID *uint64 `yaml:"asset_id,omitempty"`
	Amount  *uint64 `yaml:"amount,omitempty"`

	// Opcode and Count are used by trace_count; journal_length uses Count.
	Opcode string `yaml:"opcode,omitempty"`
	Count  int    `yaml:"count,omitempty"`

	// Opcodes is the expected order (trace_order).
	Opcodes []string `yaml:"opcodes,omitempty"`
}

// Assertion type constants.
const (
	AssertReport     = "report"
	AssertBalance    = "balance"
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
	AssertJournal    = "journal_length"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The config path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) {
		scenario.Config = filepath.Join(filepath.Dir(path), scenario.Config)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Config == "" {
		return fmt.Errorf("config is required")
	}
	if _, err := os.Stat(s.Config); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", s.Config)
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, acct := range s.Accounts {
		if err := ir.Address(acct.Address).Validate(); err != nil {
			return fmt.Errorf("accounts[%d]: %w", i, err)
		}
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: setup steps cannot carry expect", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(step Step) error {
	if step.Advance < 0 {
		return fmt.Errorf("advance must be non-negative")
	}
	if len(step.Ops) == 0 {
		return fmt.Errorf("ops list is required and must be non-empty")
	}
	for i, op := range step.Ops {
		if err := op.validate(); err != nil {
			return fmt.Errorf("ops[%d]: %w", i, err)
		}
	}
	if e := step.Expect; e != nil {
		switch e.Outcome {
		case "", OutcomeAccepted:
			if e.Code != "" {
				return fmt.Errorf("expect: code requires outcome %q", OutcomeRejected)
			}
		case OutcomeRejected:
			if len(e.Logs) > 0 || len(e.Settlements) > 0 {
				return fmt.Errorf("expect: a rejected bundle has no logs or settlements")
			}
		default:
			return fmt.Errorf("expect: unknown outcome %q", e.Outcome)
		}
	}
	return nil
}

func (o OpSpec) validate() error {
	if err := ir.Address(o.Sender).Validate(); err != nil {
		return fmt.Errorf("sender: %w", err)
	}
	set := 0
	if o.Call != "" {
		set++
	}
	if o.Pay != nil {
		set++
	}
	if o.Transfer != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one of call, pay and transfer is required")
	}
	if o.Call == "" && len(o.Args) > 0 {
		return fmt.Errorf("args are only valid on a call")
	}
	if o.Transfer == nil && o.AssetID != nil {
		return fmt.Errorf("asset_id is only valid on a transfer")
	}
	if _, err := parseArgs(o.Args); err != nil {
		return err
	}
	return nil
}

// build converts the spec into a ledger operation against app.
func (o OpSpec) build(app ir.Address, assetID uint64) (ir.Op, error) {
	receiver := app
	if o.Receiver != "" {
		receiver = ir.Address(o.Receiver)
	}
	sender := ir.Address(o.Sender)

	switch {
	case o.Call != "":
		args, err := parseArgs(o.Args)
		if err != nil {
			return ir.Op{}, err
		}
		op := ir.Call(sender, app, o.Call, args...)
		op.Receiver = receiver
		return op, nil
	case o.Pay != nil:
		return ir.Pay(sender, receiver, *o.Pay), nil
	case o.Transfer != nil:
		asset := assetID
		if o.AssetID != nil {
			asset = *o.AssetID
		}
		return ir.AssetTransfer(sender, receiver, asset, *o.Transfer), nil
	}
	return ir.Op{}, fmt.Errorf("empty operation")
}

func parseArgs(raw []string) ([]ir.Arg, error) {
	args := make([]ir.Arg, 0, len(raw))
	for _, s := range raw {
		a, err := ir.ParseArg(s)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	return args, nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertReport:
		if a.Caller == "" || a.Call == "" {
			return fmt.Errorf("assertions[%d]: caller and call are required for report", index)
		}
		if len(a.Lines) == 0 {
			return fmt.Errorf("assertions[%d]: lines are required for report", index)
		}
		if _, err := parseArgs(a.Args); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertBalance:
		if a.Address == "" {
			return fmt.Errorf("assertions[%d]: address is required for balance", index)
		}
		if a.Amount == nil {
			return fmt.Errorf("assertions[%d]: amount is required for balance", index)
		}
	case AssertTraceCount:
		if a.Opcode == "" {
			return fmt.Errorf("assertions[%d]: opcode is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Opcodes) == 0 {
			return fmt.Errorf("assertions[%d]: opcodes list is required for trace_order", index)
		}
	case AssertJournal:
		if a.Count < 1 {
			return fmt.Errorf("assertions[%d]: count must be positive for journal_length", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
