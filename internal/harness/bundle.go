package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ledgerflow/internal/ir"
)

// BundleFile is one bundle written in the scenario op syntax, for
// submitting to a persistent engine outside a scenario:
//
//	timestamp: 1700000000
//	ops:
//	  - sender: BOB
//	    call: approve_and_pay
//	    args: ["str:f1"]
//	  - sender: BOB
//	    pay: 250
type BundleFile struct {
	// Timestamp is the block time. Zero lets the caller choose.
	Timestamp int64    `yaml:"timestamp,omitempty"`
	Ops       []OpSpec `yaml:"ops"`
}

// LoadBundle reads and validates a bundle file.
func LoadBundle(path string) (*BundleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle file: %w", err)
	}

	var b BundleFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if b.Timestamp < 0 {
		return nil, fmt.Errorf("invalid bundle: timestamp must be non-negative")
	}
	if err := validateStep(Step{Ops: b.Ops}); err != nil {
		return nil, fmt.Errorf("invalid bundle: %w", err)
	}
	return &b, nil
}

// Build converts the file into a bundle against app. Transfers without an
// explicit asset use assetID.
func (b *BundleFile) Build(app ir.Address, assetID uint64) (ir.Bundle, error) {
	bundle := ir.Bundle{Timestamp: b.Timestamp, Ops: make([]ir.Op, 0, len(b.Ops))}
	for i, spec := range b.Ops {
		op, err := spec.build(app, assetID)
		if err != nil {
			return ir.Bundle{}, fmt.Errorf("ops[%d]: %w", i, err)
		}
		bundle.Ops = append(bundle.Ops, op)
	}
	return bundle, nil
}
