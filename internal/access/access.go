// Package access resolves whether a caller holds the role an operation
// requires.
package access

import "github.com/roach88/ledgerflow/internal/ir"

// Role names the party an operation must be invoked by.
type Role int

const (
	// Anyone places no restriction on the caller.
	Anyone Role = iota

	// Admin is the instance administrator.
	Admin

	// Initiator is the party that created the record.
	Initiator

	// Counterparty is the other party named by the record.
	Counterparty

	// EitherParty is the Initiator or the Counterparty.
	EitherParty
)

func (r Role) String() string {
	switch r {
	case Anyone:
		return "anyone"
	case Admin:
		return "admin"
	case Initiator:
		return "initiator"
	case Counterparty:
		return "counterparty"
	case EitherParty:
		return "either_party"
	default:
		return "unknown"
	}
}

// Parties are the identities a record carries. Zero values never match a
// caller, so records without a counterparty cannot authorize one.
type Parties struct {
	Initiator    ir.Address
	Counterparty ir.Address
}

// Authorize reports whether caller holds role for a record with parties,
// given the instance admin. An empty caller is never authorized except
// for Anyone.
func Authorize(admin ir.Address, parties Parties, caller ir.Address, role Role) bool {
	if role == Anyone {
		return true
	}
	if caller == "" {
		return false
	}
	switch role {
	case Admin:
		return caller == admin
	case Initiator:
		return caller == parties.Initiator
	case Counterparty:
		return caller == parties.Counterparty
	case EitherParty:
		return caller == parties.Initiator || caller == parties.Counterparty
	default:
		return false
	}
}
