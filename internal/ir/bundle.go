package ir

import (
	"fmt"
	"strings"
)

// MaxAddressLen bounds the length of a raw address.
const MaxAddressLen = 64

// Address is the raw identity of an account on the host ledger.
type Address string

// Validate reports whether the address is usable as a record party.
// Addresses are raw identities: non-empty, bounded, and free of separators
// so they can be embedded in storage keys.
func (a Address) Validate() error {
	if a == "" {
		return fmt.Errorf("address is empty")
	}
	if len(a) > MaxAddressLen {
		return fmt.Errorf("address longer than %d bytes", MaxAddressLen)
	}
	if strings.ContainsAny(string(a), ",:_\x00") {
		return fmt.Errorf("address %q contains a reserved character", string(a))
	}
	return nil
}

// OpKind is the type of a ledger operation.
type OpKind string

const (
	// KindPayment is a transfer of the native unit.
	KindPayment OpKind = "pay"

	// KindAssetTransfer is a transfer of a non-native asset.
	KindAssetTransfer OpKind = "axfer"

	// KindAppCall invokes the lifecycle engine.
	KindAppCall OpKind = "appl"
)

// Valid reports whether k is a known operation kind.
func (k OpKind) Valid() bool {
	switch k {
	case KindPayment, KindAssetTransfer, KindAppCall:
		return true
	}
	return false
}

// Op is one operation inside an atomic bundle.
//
// Value transfers use Sender, Receiver, Amount and (for asset transfers)
// AssetID. App calls use Sender as the authenticated caller, Receiver as the
// application address, Opcode and Args.
type Op struct {
	Kind     OpKind  `json:"kind"`
	Sender   Address `json:"sender"`
	Receiver Address `json:"receiver,omitempty"`
	Amount   uint64  `json:"amount,omitempty"`
	AssetID  uint64  `json:"asset_id,omitempty"`
	Opcode   string  `json:"opcode,omitempty"`
	Args     []Arg   `json:"args,omitempty"`
}

// IsTransfer reports whether the operation moves value.
func (o Op) IsTransfer() bool {
	return o.Kind == KindPayment || o.Kind == KindAssetTransfer
}

// Bundle is a group of operations that commit or abort as one unit.
type Bundle struct {
	// ID identifies the bundle. Assigned by the engine when empty.
	ID string `json:"id"`

	// Timestamp is the host's latest block time in seconds.
	Timestamp int64 `json:"timestamp"`

	// Ops are executed in order.
	Ops []Op `json:"ops"`
}

// Settlement is an outbound transfer requested by the engine as the side
// effect of a transition. The sender is always the application address.
type Settlement struct {
	Receiver Address `json:"receiver"`
	Amount   uint64  `json:"amount"`
	AssetID  uint64  `json:"asset_id"`

	// Opcode names the transition that requested the settlement.
	Opcode string `json:"opcode"`
}

func (s Settlement) String() string {
	if s.AssetID != 0 {
		return fmt.Sprintf("%d of asset %d to %s (%s)", s.Amount, s.AssetID, s.Receiver, s.Opcode)
	}
	return fmt.Sprintf("%d to %s (%s)", s.Amount, s.Receiver, s.Opcode)
}

// Pay builds a native payment operation.
func Pay(sender, receiver Address, amount uint64) Op {
	return Op{Kind: KindPayment, Sender: sender, Receiver: receiver, Amount: amount}
}

// AssetTransfer builds an asset transfer operation.
func AssetTransfer(sender, receiver Address, assetID, amount uint64) Op {
	return Op{Kind: KindAssetTransfer, Sender: sender, Receiver: receiver, AssetID: assetID, Amount: amount}
}

// Call builds an app call operation against app.
func Call(sender, app Address, opcode string, args ...Arg) Op {
	return Op{Kind: KindAppCall, Sender: sender, Receiver: app, Opcode: opcode, Args: args}
}
