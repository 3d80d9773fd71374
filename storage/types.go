package storage

import (
	"time"

	"github.com/vocdoni/utt-core/types"
)

// BurnStatus is the processing state of a submitted burn operation.
type BurnStatus string

const (
	BurnStatusPending  BurnStatus = "pending"
	BurnStatusAccepted BurnStatus = "accepted"
	BurnStatusRejected BurnStatus = "rejected"
)

// PendingBurn is a serialized burn operation waiting to be validated. The
// trace field carries the encoded span of the request that submitted it.
type PendingBurn struct {
	Data          types.HexBytes `json:"data" cbor:"0,keyasint,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty" cbor:"1,keyasint,omitempty"`
	Trace         types.HexBytes `json:"trace,omitempty" cbor:"2,keyasint,omitempty"`
	ReceivedAt    time.Time      `json:"receivedAt" cbor:"3,keyasint,omitempty"`
}

// BurnRecord is the status of a burn operation, indexed by its hash.
type BurnRecord struct {
	Hash      string         `json:"hash" cbor:"0,keyasint,omitempty"`
	Status    BurnStatus     `json:"status" cbor:"1,keyasint,omitempty"`
	Value     uint64         `json:"value" cbor:"2,keyasint"`
	Pid       string         `json:"pid,omitempty" cbor:"3,keyasint,omitempty"`
	Nullifier types.HexBytes `json:"nullifier,omitempty" cbor:"4,keyasint,omitempty"`
	Reason    string         `json:"reason,omitempty" cbor:"5,keyasint,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt" cbor:"6,keyasint,omitempty"`
}

// EncryptedSecret is a secret sealed with a password derived key.
type EncryptedSecret struct {
	Mode       string         `cbor:"0,keyasint,omitempty"`
	Salt       types.HexBytes `cbor:"1,keyasint,omitempty"`
	Ciphertext types.HexBytes `cbor:"2,keyasint,omitempty"`
}
