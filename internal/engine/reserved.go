package engine

import (
	"github.com/roach88/ledgerflow/internal/ir"
)

// Reserved opcodes handled by the engine for every variant.
const (
	OpCreate            = "create"
	OpInitialize        = "initialize"
	OpTransferOwnership = "transfer_ownership"
	OpUpdateApp         = "update_app"
	OpDeleteApp         = "delete_app"
	OpEmergencyWithdraw = "emergency_withdraw"
)

// CreateApp creates the instance. Admin is optional.
type CreateApp struct{ Admin ir.Address }

// TransferOwnership hands the admin role to To.
type TransferOwnership struct{ To ir.Address }

// UpdateApp records a new program version.
type UpdateApp struct{ Version uint64 }

// DeleteApp retires the instance; every later call is rejected.
type DeleteApp struct{}

// EmergencyWithdraw pays Amount from the application to the admin.
type EmergencyWithdraw struct{ Amount uint64 }

func (CreateApp) Opcode() string         { return OpCreate }
func (TransferOwnership) Opcode() string { return OpTransferOwnership }
func (UpdateApp) Opcode() string         { return OpUpdateApp }
func (DeleteApp) Opcode() string         { return OpDeleteApp }
func (EmergencyWithdraw) Opcode() string { return OpEmergencyWithdraw }

// decodeReserved decodes a reserved opcode. ok is false for every other
// opcode, which belongs to the App.
func decodeReserved(op ir.Op) (cmd Command, ok bool, err error) {
	a := NewArgs(op)
	switch op.Opcode {
	case OpCreate, OpInitialize:
		var c CreateApp
		if a.Remaining() > 0 {
			c.Admin = a.Address("admin")
		}
		cmd = c
	case OpTransferOwnership:
		cmd = TransferOwnership{To: a.Address("new_admin")}
	case OpUpdateApp:
		cmd = UpdateApp{Version: a.Positive("version")}
	case OpDeleteApp:
		cmd = DeleteApp{}
	case OpEmergencyWithdraw:
		cmd = EmergencyWithdraw{Amount: a.Positive("amount")}
	default:
		return nil, false, nil
	}
	return cmd, true, a.Done()
}

// executeReserved runs a reserved command. The instance exists and is live
// for every command except CreateApp.
func (e *Engine) executeReserved(c *Context, cmd Command) error {
	switch cmd := cmd.(type) {
	case CreateApp:
		if c.run.instance != nil {
			return Errorf(CodeAlreadyExists, "application instance already exists")
		}
		admin := cmd.Admin
		if admin == "" {
			admin = c.run.settings.Admin
		}
		if admin == "" {
			admin = c.Caller()
		}
		c.run.instance = &Instance{
			Variant:   e.app.Name(),
			Admin:     admin,
			App:       c.run.settings.App,
			AssetID:   c.run.settings.AssetID,
			CycleSecs: c.run.settings.CycleSecs,
			Version:   1,
		}
		c.run.dirty = true
		c.Logf("created:%s,admin:%s", e.app.Name(), admin)
		return nil

	case TransferOwnership:
		if err := c.RequireAdmin(); err != nil {
			return err
		}
		if err := c.UpdateInstance(func(in *Instance) error {
			in.Admin = cmd.To
			return nil
		}); err != nil {
			return err
		}
		c.Logf("admin:%s", cmd.To)
		return nil

	case UpdateApp:
		if err := c.RequireAdmin(); err != nil {
			return err
		}
		if err := c.UpdateInstance(func(in *Instance) error {
			if cmd.Version <= in.Version {
				return Errorf(CodeInvalidState, "version %d is not newer than %d", cmd.Version, in.Version)
			}
			in.Version = cmd.Version
			return nil
		}); err != nil {
			return err
		}
		c.Logf("version:%d", cmd.Version)
		return nil

	case DeleteApp:
		if err := c.RequireAdmin(); err != nil {
			return err
		}
		if err := c.UpdateInstance(func(in *Instance) error {
			in.Deleted = true
			return nil
		}); err != nil {
			return err
		}
		c.Log("deleted")
		return nil

	case EmergencyWithdraw:
		if err := c.RequireAdmin(); err != nil {
			return err
		}
		// Bounded only by the application's balance, which the host enforces
		// when it stages the settlement.
		if err := c.Issue(c.Admin(), cmd.Amount); err != nil {
			return err
		}
		c.Logf("withdrawn:%d", cmd.Amount)
		return nil

	default:
		return UnknownCommand(cmd)
	}
}
