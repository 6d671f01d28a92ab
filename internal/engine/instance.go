package engine

import (
	"fmt"

	"github.com/roach88/ledgerflow/internal/codec"
	"github.com/roach88/ledgerflow/internal/ir"
)

// InstanceKey is the store key of the global configuration record.
const InstanceKey = "global_config"

// Settings is the configuration an engine is constructed with. It comes
// from the config file and is fixed for the lifetime of the engine; the
// mutable parts (admin, version) are copied into the Instance at create.
type Settings struct {
	// Admin is the initial administrator. When empty, the creator becomes
	// admin.
	Admin ir.Address

	// App is the application's own address: payments must be sent to it
	// and settlements are sent from it.
	App ir.Address

	// AssetID is the asset payments and settlements move in. 0 is the
	// native unit.
	AssetID uint64

	// CycleSecs is the payroll disbursement cycle.
	CycleSecs uint64

	// MaxListing caps index listings. 0 selects DefaultMaxListing.
	MaxListing int
}

// Validate checks the settings are usable.
func (s Settings) Validate() error {
	if err := s.App.Validate(); err != nil {
		return fmt.Errorf("app address: %w", err)
	}
	if s.Admin != "" {
		if err := s.Admin.Validate(); err != nil {
			return fmt.Errorf("admin: %w", err)
		}
	}
	if s.MaxListing < 0 {
		return fmt.Errorf("max listing must not be negative")
	}
	return nil
}

// Instance is the persisted global configuration record: admin identity,
// program version, counters and statistics.
type Instance struct {
	Variant          string
	Admin            ir.Address
	App              ir.Address
	AssetID          uint64
	CycleSecs        uint64
	Version          uint64
	Deleted          bool
	TotalRecords     uint64
	TotalValue       uint64
	Counter          uint64
	LastDisbursement int64
}

// Stats returns the creation statistics.
func (in Instance) Stats() Stats {
	return Stats{TotalRecords: in.TotalRecords, TotalValue: in.TotalValue}
}

func encodeInstance(in Instance) ([]byte, error) {
	f := codec.Fields{}
	f.SetText("variant", in.Variant)
	f.SetText("admin", string(in.Admin))
	f.SetText("app", string(in.App))
	f.SetUint("asset_id", in.AssetID)
	f.SetUint("cycle_secs", in.CycleSecs)
	f.SetUint("version", in.Version)
	f.SetBool("deleted", in.Deleted)
	f.SetUint("total_records", in.TotalRecords)
	f.SetUint("total_value", in.TotalValue)
	f.SetUint("counter", in.Counter)
	f.SetUint("last_disbursement", uint64(in.LastDisbursement))
	return f.Encode()
}

// DecodeInstance parses a global configuration record.
func DecodeInstance(data []byte) (Instance, error) {
	f, err := codec.DecodeFields(data)
	if err != nil {
		return Instance{}, err
	}

	var in Instance
	var admin, app string
	texts := []struct {
		name string
		dst  *string
	}{
		{"variant", &in.Variant},
		{"admin", &admin},
		{"app", &app},
	}
	for _, t := range texts {
		if *t.dst, err = f.Text(t.name); err != nil {
			return Instance{}, err
		}
	}
	in.Admin, in.App = ir.Address(admin), ir.Address(app)

	uints := []struct {
		name string
		dst  *uint64
	}{
		{"asset_id", &in.AssetID},
		{"cycle_secs", &in.CycleSecs},
		{"version", &in.Version},
		{"total_records", &in.TotalRecords},
		{"total_value", &in.TotalValue},
		{"counter", &in.Counter},
	}
	for _, u := range uints {
		if *u.dst, err = f.Uint(u.name); err != nil {
			return Instance{}, err
		}
	}

	last, err := f.Uint("last_disbursement")
	if err != nil {
		return Instance{}, err
	}
	in.LastDisbursement = int64(last)

	if in.Deleted, err = f.Bool("deleted"); err != nil {
		return Instance{}, err
	}
	return in, nil
}
