package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future algorithm migration.
const (
	DomainBundle     = "ledgerflow/bundle/v1"
	DomainSettlement = "ledgerflow/settlement/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps domain and data boundaries unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// OpObject converts an operation to its canonical object form.
// Arguments are hex encoded; zero-valued optional fields are omitted.
func OpObject(op Op) Object {
	obj := Object{
		"kind":   String(op.Kind),
		"sender": String(op.Sender),
	}
	if op.Receiver != "" {
		obj["receiver"] = String(op.Receiver)
	}
	if op.IsTransfer() {
		obj["amount"] = Uint64(op.Amount)
	}
	if op.AssetID != 0 {
		obj["asset_id"] = Uint64(op.AssetID)
	}
	if op.Kind == KindAppCall {
		obj["opcode"] = String(op.Opcode)
		args := make(Array, len(op.Args))
		for i, a := range op.Args {
			text, _ := a.MarshalText()
			args[i] = String(text)
		}
		obj["args"] = args
	}
	return obj
}

// BundleObject converts a bundle to its canonical object form.
func BundleObject(b Bundle) Object {
	ops := make(Array, len(b.Ops))
	for i, op := range b.Ops {
		ops[i] = OpObject(op)
	}
	return Object{
		"id":        String(b.ID),
		"timestamp": Int(b.Timestamp),
		"ops":       ops,
	}
}

// SettlementObject converts a settlement to its canonical object form.
func SettlementObject(s Settlement) Object {
	return Object{
		"receiver": String(s.Receiver),
		"amount":   Uint64(s.Amount),
		"asset_id": Uint64(s.AssetID),
		"opcode":   String(s.Opcode),
	}
}

// BundleHash computes the content hash of a bundle. Identical bundles hash
// identically across processes and replays.
func BundleHash(b Bundle) (string, error) {
	canonical, err := MarshalCanonical(BundleObject(b))
	if err != nil {
		return "", fmt.Errorf("BundleHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBundle, canonical), nil
}

// SettlementHash computes the content hash of a settlement requested at
// position pos of the bundle identified by bundleHash.
func SettlementHash(bundleHash string, pos int, s Settlement) (string, error) {
	obj := SettlementObject(s)
	obj["bundle"] = String(bundleHash)
	obj["position"] = Int(pos)
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("SettlementHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSettlement, canonical), nil
}
