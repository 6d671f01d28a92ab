// Package harness provides conformance testing for ledgerflow applications.
//
// The harness loads a variant configuration, drives the engine through a
// simulated ledger with the bundles a scenario describes, and checks the
// outcome of every bundle plus assertions on the final state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: escrow_dispute
//	description: "A paid request is disputed and resolved"
//	config: ../configs/escrow.cue
//	accounts:
//	  - address: BOB
//	    amount: 1000
//	flow:
//	  - ops:
//	      - sender: ALICE
//	        call: create_file_request
//	        args: ["str:f1", "addr:BOB", "str:QmHash", "u64:2048", "u64:250", "str:pdf", "u64:1", "str:QmCid"]
//	    expect:
//	      logs: ["file_req:f1,status:requested"]
//	  - ops:
//	      - sender: BOB
//	        call: approve_and_pay
//	        args: ["str:f1"]
//	      - sender: BOB
//	        pay: 250
//	  - ops:
//	      - sender: EVE
//	        call: dispute_transfer
//	        args: ["str:f1", "str:spam"]
//	    expect:
//	      outcome: rejected
//	      code: PERMISSION_DENIED
//	assertions:
//	  - type: balance
//	    address: ESCROW
//	    amount: 250
//
// Every op is exactly one of an app call (call/args), a native payment
// (pay) or an asset transfer (transfer). Payments and transfers go to the
// application address unless receiver is set.
//
// # Assertion Types
//
//   - report: runs a read-only call and compares its lines exactly
//   - balance: checks a simulated ledger holding
//   - trace_count: counts accepted occurrences of an opcode
//   - trace_order: checks opcodes were first accepted in the given order
//   - journal_length: counts journaled bundles, including the create
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory SQLite database, sequential bundle ids
// and a block clock starting at Epoch, so the same scenario always yields
// the same trace. Traces are compared against golden files as JSON Lines,
// one canonical object per flow step.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/escrow_dispute.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
