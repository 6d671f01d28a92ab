package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/ledgerflow/internal/access"
	"github.com/roach88/ledgerflow/internal/ir"
)

func guardContext(caller, opcode string) *Context {
	return &Context{
		op:  call(ir.Address(caller), opcode),
		run: &run{instance: &Instance{Admin: testAdmin}},
	}
}

func TestTable_Check(t *testing.T) {
	parties := access.Parties{Initiator: "ALICE", Counterparty: "BOB"}
	rules := Table[noteStatus]{
		"settle": {Role: access.EitherParty, From: []noteStatus{notePaid}},
		"audit":  {Role: access.Admin},
	}

	tests := []struct {
		name   string
		caller string
		opcode string
		status noteStatus
		want   Code
	}{
		{"initiator allowed", "ALICE", "settle", notePaid, ""},
		{"counterparty allowed", "BOB", "settle", notePaid, ""},
		{"stranger denied", "EVE", "settle", notePaid, CodePermissionDenied},
		{"stranger denied in wrong status", "EVE", "settle", noteOpen, CodePermissionDenied},
		{"party in wrong status", "BOB", "settle", noteReleased, CodeInvalidState},
		{"admin any status", "ADMIN", "audit", noteReleased, ""},
		{"party not admin", "ALICE", "audit", noteOpen, CodePermissionDenied},
		{"no rule", "ALICE", "unlisted", noteOpen, CodeArgumentError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rules.Check(guardContext(tt.caller, tt.opcode), parties, tt.status)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsCode(err, tt.want), "got %v", err)
		})
	}
}
