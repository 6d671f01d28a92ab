package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/ledgerflow/internal/codec"
	"github.com/roach88/ledgerflow/internal/store"
)

// Error is a rejection of a bundle by the engine.
//
// Every guard failure is an *Error. Infrastructure failures (the database
// going away) are returned as plain wrapped errors; they reject the bundle
// too, but carry no Code.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Opcode is the app call that failed, if any.
	Opcode string

	// Index is the position of the failing operation in the bundle,
	// or -1 for bundle-level failures.
	Index int

	// Err is the underlying cause, if any.
	Err error
}

// Code categorizes rejections.
type Code string

const (
	// CodeNotFound indicates a record key is absent.
	CodeNotFound Code = "NOT_FOUND"

	// CodeAlreadyExists indicates a create on an occupied key.
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// CodePermissionDenied indicates the caller lacks the required role.
	CodePermissionDenied Code = "PERMISSION_DENIED"

	// CodeInvalidState indicates a transition from the wrong status, or an
	// arithmetic overflow.
	CodeInvalidState Code = "INVALID_STATE"

	// CodePaymentMismatch indicates the sibling payment is absent or wrong.
	CodePaymentMismatch Code = "PAYMENT_MISMATCH"

	// CodeDecodeError indicates a stored record is malformed.
	CodeDecodeError Code = "DECODE_ERROR"

	// CodeArgumentError indicates malformed or missing call arguments.
	CodeArgumentError Code = "ARGUMENT_ERROR"

	// CodeBudgetExceeded indicates the bundle exceeded its fixed budget.
	CodeBudgetExceeded Code = "BUDGET_EXCEEDED"

	// CodeSettlementRejected indicates the host refused a settlement.
	CodeSettlementRejected Code = "SETTLEMENT_REJECTED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Opcode != "" {
		return fmt.Sprintf("%s: %s (op=%d, opcode=%s)", e.Code, e.Message, e.Index, e.Opcode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates an *Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Index: -1}
}

// CodeOf returns the Code of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// fromStorage maps storage and codec sentinels to engine codes.
// Other errors are infrastructure failures and are wrapped unchanged.
func fromStorage(err error, key string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: fmt.Sprintf("no record %q", key), Index: -1, Err: err}
	case errors.Is(err, store.ErrAlreadyExists):
		return &Error{Code: CodeAlreadyExists, Message: fmt.Sprintf("record %q already exists", key), Index: -1, Err: err}
	case errors.Is(err, codec.ErrDecode):
		return &Error{Code: CodeDecodeError, Message: fmt.Sprintf("record %q is malformed", key), Index: -1, Err: err}
	default:
		return fmt.Errorf("storage %q: %w", key, err)
	}
}

// DecodeFailed wraps a codec failure for the record under key.
func DecodeFailed(key string, err error) error {
	return fromStorage(err, key)
}

// annotate stamps the failing operation onto an *Error.
func annotate(err error, index int, opcode string) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Opcode == "" {
			e.Opcode = opcode
			e.Index = index
		}
		return err
	}
	return fmt.Errorf("op %d (%s): %w", index, opcode, err)
}
