package escrow

import (
	"fmt"

	"github.com/roach88/ledgerflow/internal/access"
	"github.com/roach88/ledgerflow/internal/codec"
	"github.com/roach88/ledgerflow/internal/ir"
)

// Status is the lifecycle status of a file request.
type Status byte

const (
	Requested Status = iota + 1
	Paid
	Completed
	Disputed
	ResolvedInitiator
	ResolvedCounterparty
)

func (s Status) String() string {
	switch s {
	case Requested:
		return "requested"
	case Paid:
		return "paid"
	case Completed:
		return "completed"
	case Disputed:
		return "disputed"
	case ResolvedInitiator:
		return "resolved_initiator"
	case ResolvedCounterparty:
		return "resolved_counterparty"
	}
	return fmt.Sprintf("status(%d)", byte(s))
}

func (s Status) valid() bool {
	return s >= Requested && s <= ResolvedCounterparty
}

// Request is a file-access escrow record.
type Request struct {
	ID           string
	Initiator    ir.Address
	Counterparty ir.Address
	ContentHash  string
	Size         uint64
	Fee          uint64
	FileType     string
	IPFS         bool
	Location     string
	Status       Status

	DisputeReason string
	Confirmation  string
}

const requestTag codec.Tag = 0x01

// Key returns the store key of the request with the given id.
func Key(id string) string {
	return "file_req_" + id
}

// Parties returns the roles of the request for access checks.
func (r Request) Parties() access.Parties {
	return access.Parties{Initiator: r.Initiator, Counterparty: r.Counterparty}
}

// Encode packs the request.
func (r Request) Encode() ([]byte, error) {
	return codec.NewWriter(requestTag).
		Text(r.ID).
		Text(string(r.Initiator)).
		Text(string(r.Counterparty)).
		Text(r.ContentHash).
		Uint(r.Size).
		Uint(r.Fee).
		Text(r.FileType).
		Bool(r.IPFS).
		Text(r.Location).
		Byte(byte(r.Status)).
		Text(r.DisputeReason).
		Text(r.Confirmation).
		Finish()
}

// DecodeRequest unpacks a request encoded by Encode.
func DecodeRequest(data []byte) (Request, error) {
	rd := codec.NewReader(data, requestTag)
	r := Request{
		ID:           rd.Text(),
		Initiator:    ir.Address(rd.Text()),
		Counterparty: ir.Address(rd.Text()),
		ContentHash:  rd.Text(),
		Size:         rd.Uint(),
		Fee:          rd.Uint(),
		FileType:     rd.Text(),
		IPFS:         rd.Bool(),
		Location:     rd.Text(),
		Status:       Status(rd.Byte()),
	}
	r.DisputeReason = rd.Text()
	r.Confirmation = rd.Text()
	if !r.Status.valid() {
		rd.Fail("unknown request status %d", byte(r.Status))
	}
	return r, rd.Close()
}

// String formats the request as a report line.
func (r Request) String() string {
	ipfs := 0
	if r.IPFS {
		ipfs = 1
	}
	line := fmt.Sprintf("id:%s,initiator:%s,counterparty:%s,hash:%s,size:%d,fee:%d,type:%s,ipfs:%d,location:%s,status:%s",
		r.ID, r.Initiator, r.Counterparty, r.ContentHash, r.Size, r.Fee, r.FileType, ipfs, r.Location, r.Status)
	if r.DisputeReason != "" {
		line += ",reason:" + r.DisputeReason
	}
	if r.Confirmation != "" {
		line += ",confirmation:" + r.Confirmation
	}
	return line
}
