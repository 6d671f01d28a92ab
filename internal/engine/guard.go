package engine

import (
	"slices"

	"github.com/roach88/ledgerflow/internal/access"
)

// Status is a variant's closed record status enumeration.
type Status interface {
	comparable
	String() string
}

// Rule is the guard for one transition: the role the caller must hold and
// the statuses the record may be in. An empty From allows any status.
type Rule[S Status] struct {
	Role access.Role
	From []S
}

// Table maps opcodes to their transition guards.
type Table[S Status] map[string]Rule[S]

// Check evaluates the guard for the current app call against a record.
//
// The role is checked before the status, so a caller without the role is
// PERMISSION_DENIED whatever state the record is in, and a caller with the
// role is INVALID_STATE when the record is in the wrong status.
func (t Table[S]) Check(c *Context, parties access.Parties, status S) error {
	rule, ok := t[c.Opcode()]
	if !ok {
		return Errorf(CodeArgumentError, "no transition for opcode %q", c.Opcode())
	}
	if err := c.Authorize(parties, rule.Role); err != nil {
		return err
	}
	if len(rule.From) > 0 && !slices.Contains(rule.From, status) {
		return Errorf(CodeInvalidState, "%s not allowed from status %s", c.Opcode(), status)
	}
	return nil
}
