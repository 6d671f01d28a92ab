package escrow

import (
	"strings"

	"github.com/roach88/ledgerflow/internal/access"
	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/ir"
)

// Name is the variant name recorded in the instance.
const Name = "escrow"

// indexKind names the per-party listing of request ids.
const indexKind = "file_req"

var rules = engine.Table[Status]{
	OpApproveAndPay:  {Role: access.Counterparty, From: []Status{Requested}},
	OpConfirmReceipt: {Role: access.Counterparty, From: []Status{Paid}},
	OpDispute:        {Role: access.EitherParty, From: []Status{Paid}},
	OpResolve:        {Role: access.Admin, From: []Status{Disputed}},
	OpCancel:         {Role: access.Initiator, From: []Status{Requested}},
	OpUpdateMetadata: {Role: access.Initiator, From: []Status{Requested}},
}

// App is the escrow application. It is stateless; all state lives in the
// store behind the engine Context.
type App struct{}

// Name implements engine.App.
func (App) Name() string { return Name }

// Execute implements engine.App.
func (App) Execute(c *engine.Context, cmd engine.Command) error {
	switch cmd := cmd.(type) {
	case CreateRequest:
		return create(c, cmd)

	case ApproveAndPay:
		r, err := load(c, cmd.ID)
		if err != nil {
			return err
		}
		if err := rules.Check(c, r.Parties(), r.Status); err != nil {
			return err
		}
		if err := c.VerifyPayment(PaymentOffset, c.Caller(), r.Fee); err != nil {
			return err
		}
		r.Status = Paid
		return save(c, r)

	case ConfirmReceipt:
		r, err := load(c, cmd.ID)
		if err != nil {
			return err
		}
		if err := rules.Check(c, r.Parties(), r.Status); err != nil {
			return err
		}
		if err := c.Issue(r.Initiator, r.Fee); err != nil {
			return err
		}
		r.Status = Completed
		r.Confirmation = cmd.Confirmation
		return save(c, r)

	case Dispute:
		r, err := load(c, cmd.ID)
		if err != nil {
			return err
		}
		if err := rules.Check(c, r.Parties(), r.Status); err != nil {
			return err
		}
		r.Status = Disputed
		r.DisputeReason = cmd.Reason
		return save(c, r)

	case Resolve:
		r, err := load(c, cmd.ID)
		if err != nil {
			return err
		}
		if err := rules.Check(c, r.Parties(), r.Status); err != nil {
			return err
		}
		winner, status := r.Initiator, ResolvedInitiator
		if cmd.Outcome == CounterpartyWins {
			winner, status = r.Counterparty, ResolvedCounterparty
		}
		if err := c.Issue(winner, r.Fee); err != nil {
			return err
		}
		r.Status = status
		return save(c, r)

	case Cancel:
		r, err := load(c, cmd.ID)
		if err != nil {
			return err
		}
		if err := rules.Check(c, r.Parties(), r.Status); err != nil {
			return err
		}
		if err := c.Delete(Key(r.ID)); err != nil {
			return err
		}
		for _, party := range []ir.Address{r.Initiator, r.Counterparty} {
			if err := c.IndexRemove(party, indexKind, r.ID); err != nil {
				return err
			}
		}
		c.Logf("file_req:%s,status:cancelled", r.ID)
		return nil

	case UpdateMetadata:
		r, err := load(c, cmd.ID)
		if err != nil {
			return err
		}
		if err := rules.Check(c, r.Parties(), r.Status); err != nil {
			return err
		}
		r.ContentHash, r.Size, r.Fee = cmd.ContentHash, cmd.Size, cmd.Fee
		return save(c, r)

	case GetRequest:
		data, found, err := c.Read(Key(cmd.ID))
		if err != nil {
			return err
		}
		if !found {
			c.Log("not_found")
			return nil
		}
		r, err := DecodeRequest(data)
		if err != nil {
			return engine.DecodeFailed(Key(cmd.ID), err)
		}
		c.Log(r.String())
		return nil

	case GetUserRequests:
		ids, err := c.IndexList(cmd.User, indexKind)
		if err != nil {
			return err
		}
		c.Log(listLine(ids))
		return nil

	case GetStats:
		s := c.Stats()
		c.Logf("total_files:%d,total_value:%d", s.TotalRecords, s.TotalValue)
		return nil

	default:
		return engine.UnknownCommand(cmd)
	}
}

func create(c *engine.Context, cmd CreateRequest) error {
	if cmd.Counterparty == c.Caller() {
		return engine.Errorf(engine.CodeArgumentError, "recipient must differ from the file owner")
	}
	r := Request{
		ID:           cmd.ID,
		Initiator:    c.Caller(),
		Counterparty: cmd.Counterparty,
		ContentHash:  cmd.ContentHash,
		Size:         cmd.Size,
		Fee:          cmd.Fee,
		FileType:     cmd.FileType,
		IPFS:         cmd.IPFS,
		Location:     cmd.Location,
		Status:       Requested,
	}
	data, err := r.Encode()
	if err != nil {
		return engine.Errorf(engine.CodeArgumentError, "encode request: %v", err)
	}
	if err := c.Create(Key(r.ID), data); err != nil {
		return err
	}
	for _, party := range []ir.Address{r.Initiator, r.Counterparty} {
		if err := c.IndexAdd(party, indexKind, r.ID); err != nil {
			return err
		}
	}
	if err := c.RecordCreated(r.Fee); err != nil {
		return err
	}
	c.Logf("file_req:%s,status:%s", r.ID, r.Status)
	return nil
}

func load(c *engine.Context, id string) (Request, error) {
	data, err := c.Get(Key(id))
	if err != nil {
		return Request{}, err
	}
	r, err := DecodeRequest(data)
	if err != nil {
		return Request{}, engine.DecodeFailed(Key(id), err)
	}
	return r, nil
}

func save(c *engine.Context, r Request) error {
	data, err := r.Encode()
	if err != nil {
		return engine.Errorf(engine.CodeArgumentError, "encode request: %v", err)
	}
	if err := c.Update(Key(r.ID), data); err != nil {
		return err
	}
	c.Logf("file_req:%s,status:%s", r.ID, r.Status)
	return nil
}

// listLine formats an id listing; an empty listing is "[]".
func listLine(ids []string) string {
	if len(ids) == 0 {
		return "[]"
	}
	return strings.Join(ids, ",")
}
