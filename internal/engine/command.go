package engine

import (
	"github.com/roach88/ledgerflow/internal/ir"
)

// Command is a decoded app call. Each App defines a closed set of command
// types and dispatches on them with a type switch.
type Command interface {
	Opcode() string
}

// App is one application variant (escrow, loan, payroll).
//
// Decode maps an app call to a concrete command, failing with
// ARGUMENT_ERROR for unknown opcodes or malformed arguments. Execute runs
// the command; its default case must reject unknown command types with
// ARGUMENT_ERROR.
type App interface {
	Name() string
	Decode(op ir.Op) (Command, error)
	Execute(c *Context, cmd Command) error
}

// SettingsValidator is implemented by apps with settings requirements of
// their own, checked by New after Settings.Validate.
type SettingsValidator interface {
	ValidateSettings(s Settings) error
}

// UnknownCommand is the rejection for a command type an App does not handle.
func UnknownCommand(cmd Command) error {
	return Errorf(CodeArgumentError, "unsupported command %T", cmd)
}

// UnknownOpcode is the rejection for an opcode an App does not define.
func UnknownOpcode(opcode string) error {
	return Errorf(CodeArgumentError, "unknown opcode %q", opcode)
}
