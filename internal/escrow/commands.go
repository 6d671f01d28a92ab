package escrow

import (
	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/ir"
)

// Opcodes.
const (
	OpCreateRequest  = "create_file_request"
	OpApproveAndPay  = "approve_and_pay"
	OpConfirmReceipt = "confirm_receipt"
	OpDispute        = "dispute_transfer"
	OpResolve        = "resolve_dispute"
	OpCancel         = "cancel_request"
	OpUpdateMetadata = "update_file_metadata"

	OpGetRequest      = "get_file_request"
	OpGetUserRequests = "get_user_file_requests"
	OpGetStats        = "get_stats"
)

// PaymentOffset is the position of the fee payment relative to the
// approve_and_pay call: the operation immediately after it.
const PaymentOffset = 1

// Outcome is the admin's decision on a disputed request.
type Outcome byte

const (
	InitiatorWins Outcome = iota + 1
	CounterpartyWins
)

// ParseOutcome accepts both the party names and the file-sharing names
// (sender is the file owner, recipient the payer).
func ParseOutcome(s string) (Outcome, bool) {
	switch s {
	case "initiator_wins", "sender_wins":
		return InitiatorWins, true
	case "counterparty_wins", "recipient_wins":
		return CounterpartyWins, true
	}
	return 0, false
}

type CreateRequest struct {
	ID           string
	Counterparty ir.Address
	ContentHash  string
	Size         uint64
	Fee          uint64
	FileType     string
	IPFS         bool
	Location     string
}

type ApproveAndPay struct{ ID string }

type ConfirmReceipt struct {
	ID           string
	Confirmation string
}

type Dispute struct {
	ID     string
	Reason string
}

type Resolve struct {
	ID      string
	Outcome Outcome
}

type Cancel struct{ ID string }

type UpdateMetadata struct {
	ID          string
	ContentHash string
	Size        uint64
	Fee         uint64
}

type GetRequest struct{ ID string }
type GetUserRequests struct{ User ir.Address }
type GetStats struct{}

func (CreateRequest) Opcode() string   { return OpCreateRequest }
func (ApproveAndPay) Opcode() string   { return OpApproveAndPay }
func (ConfirmReceipt) Opcode() string  { return OpConfirmReceipt }
func (Dispute) Opcode() string         { return OpDispute }
func (Resolve) Opcode() string         { return OpResolve }
func (Cancel) Opcode() string          { return OpCancel }
func (UpdateMetadata) Opcode() string  { return OpUpdateMetadata }
func (GetRequest) Opcode() string      { return OpGetRequest }
func (GetUserRequests) Opcode() string { return OpGetUserRequests }
func (GetStats) Opcode() string        { return OpGetStats }

// Decode maps an app call to its command.
func (App) Decode(op ir.Op) (engine.Command, error) {
	a := engine.NewArgs(op)
	var cmd engine.Command
	switch op.Opcode {
	case OpCreateRequest:
		cmd = CreateRequest{
			ID:           a.ID("file_id"),
			Counterparty: a.Address("recipient"),
			ContentHash:  a.Text("file_hash"),
			Size:         a.Uint("file_size"),
			Fee:          a.Positive("access_fee"),
			FileType:     a.Text("file_type"),
			IPFS:         a.Flag("is_ipfs"),
			Location:     a.Text("ipfs_cid"),
		}
	case OpApproveAndPay:
		cmd = ApproveAndPay{ID: a.ID("file_id")}
	case OpConfirmReceipt:
		cmd = ConfirmReceipt{ID: a.ID("file_id"), Confirmation: a.Text("confirmation_hash")}
	case OpDispute:
		cmd = Dispute{ID: a.ID("file_id"), Reason: a.Text("reason")}
	case OpResolve:
		id, resolution := a.ID("file_id"), a.Text("resolution")
		if err := a.Done(); err != nil {
			return nil, err
		}
		outcome, ok := ParseOutcome(resolution)
		if !ok {
			return nil, engine.Errorf(engine.CodeArgumentError, "%s: unknown resolution %q", op.Opcode, resolution)
		}
		return Resolve{ID: id, Outcome: outcome}, nil
	case OpCancel:
		cmd = Cancel{ID: a.ID("file_id")}
	case OpUpdateMetadata:
		cmd = UpdateMetadata{
			ID:          a.ID("file_id"),
			ContentHash: a.Text("file_hash"),
			Size:        a.Uint("file_size"),
			Fee:         a.Positive("access_fee"),
		}
	case OpGetRequest:
		cmd = GetRequest{ID: a.ID("file_id")}
	case OpGetUserRequests:
		cmd = GetUserRequests{User: a.Address("user")}
	case OpGetStats:
		cmd = GetStats{}
	default:
		return nil, engine.UnknownOpcode(op.Opcode)
	}
	return cmd, a.Done()
}
