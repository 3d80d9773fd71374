package api

import (
	"github.com/vocdoni/utt-core/storage"
	"github.com/vocdoni/utt-core/types"
)

// BurnRequest is the body of a burn submission. Burn carries the encoded
// burn operation.
type BurnRequest struct {
	Burn types.HexBytes `json:"burn"`
}

// BurnResponse is the response to an accepted burn submission. The burn is
// queued for validation, its final status is available at BurnEndpoint.
type BurnResponse struct {
	Hash          string         `json:"hash"`
	Nullifier     types.HexBytes `json:"nullifier"`
	CorrelationID string         `json:"correlationId,omitempty"`
}

// BurnStatus is the processing status of a burn operation.
type BurnStatus struct {
	Hash      string             `json:"hash"`
	Status    storage.BurnStatus `json:"status"`
	Value     uint64             `json:"value,omitempty"`
	Pid       string             `json:"pid,omitempty"`
	Nullifier types.HexBytes     `json:"nullifier,omitempty"`
	Reason    string             `json:"reason,omitempty"`
}

// Nullifier is the response to a nullifier lookup.
type Nullifier struct {
	Nullifier types.HexBytes `json:"nullifier"`
	Spent     bool           `json:"spent"`
	BurnHash  string         `json:"burnHash,omitempty"`
}

// NullifierRoot is the root of the spent nullifiers tree.
type NullifierRoot struct {
	Root types.HexBytes `json:"root"`
}

// Keys holds the public parameters a wallet needs to build burn operations
// accepted by this node.
type Keys struct {
	Tag          string         `json:"tag"`
	BankKey      types.HexBytes `json:"bankKey"`
	RegistrarKey types.HexBytes `json:"registrarKey"`
}
