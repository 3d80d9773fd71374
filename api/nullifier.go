package api

import (
	"net/http"

	"github.com/vocdoni/utt-core/crypto/utt"
)

// nullifier reports whether a nullifier was spent, and by which burn.
// GET /nullifiers/{nullifier}
func (a *API) nullifier(w http.ResponseWriter, r *http.Request) {
	nullifier, ok := hexURLParam(r, NullifierURLParam, utt.NullifierSize)
	if !ok {
		ErrMalformedNullifier.Write(w)
		return
	}
	spent, err := a.storage.HasNullifier(nullifier)
	if err != nil {
		ErrStorageFailure.WithErr(err).Write(w)
		return
	}
	res := &Nullifier{Nullifier: nullifier, Spent: spent}
	if spent {
		if res.BurnHash, err = a.storage.NullifierBurn(nullifier); err != nil {
			ErrStorageFailure.WithErr(err).Write(w)
			return
		}
	}
	httpWriteJSON(w, res)
}

// nullifierRoot returns the root of the spent nullifiers tree.
// GET /nullifiers/root
func (a *API) nullifierRoot(w http.ResponseWriter, r *http.Request) {
	root, err := a.storage.NullifierRoot()
	if err != nil {
		ErrStorageFailure.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &NullifierRoot{Root: root})
}

// keys returns the public parameters of this node.
// GET /keys
func (a *API) keys(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, &Keys{
		Tag:          a.params.Tag(),
		BankKey:      a.bankPK.Marshal(),
		RegistrarKey: a.regPK.Marshal(),
	})
}
