package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/vocdoni/utt-core/crypto/utt"
	"github.com/vocdoni/utt-core/log"
	"github.com/vocdoni/utt-core/storage"
	"github.com/vocdoni/utt-core/trace"
	"github.com/vocdoni/utt-core/types"
)

// newBurn decodes a burn operation and queues it for validation.
// POST /burns
func (a *API) newBurn(w http.ResponseWriter, r *http.Request) {
	span := requestSpan(r).Child("submit-burn")

	req := &BurnRequest{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4*types.MaxBurnSize)).Decode(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrBurnTooLarge.Withf("request body over %d bytes", tooLarge.Limit).Write(w)
			return
		}
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if len(req.Burn) > types.MaxBurnSize {
		ErrBurnTooLarge.Withf("%d bytes", len(req.Burn)).Write(w)
		return
	}
	burn, err := utt.DecodeBurnOp(req.Burn)
	if err != nil {
		ErrMalformedBurn.WithErr(err).Write(w)
		return
	}

	// reject early what the validator would reject anyway
	nullifier := burn.NullifierBytes()
	spent, err := a.storage.HasNullifier(nullifier.Bytes())
	if err != nil {
		ErrStorageFailure.WithErr(err).Write(w)
		return
	}
	if spent {
		ErrNullifierSpent.With(nullifier.String()).Write(w)
		return
	}

	spanData, err := trace.Inject(span)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	hash := burn.HashHex()
	if err := a.storage.PushBurn(hash, &storage.PendingBurn{
		Data:          req.Burn,
		CorrelationID: span.CorrelationID,
		Trace:         spanData,
		ReceivedAt:    time.Now(),
	}); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			ErrBurnAlreadyExists.With(hash).Write(w)
			return
		}
		ErrStorageFailure.WithErr(err).Write(w)
		return
	}

	log.Infow("new burn", append(span.LogFields(), "hash", hash, "value", burn.Value())...)
	httpWriteJSON(w, &BurnResponse{
		Hash:          hash,
		Nullifier:     nullifier.Bytes(),
		CorrelationID: span.CorrelationID,
	})
}

// burnStatus returns the processing status of a burn.
// GET /burns/{hash}
func (a *API) burnStatus(w http.ResponseWriter, r *http.Request) {
	hash, ok := hexURLParam(r, BurnURLParam, 32)
	if !ok {
		ErrMalformedBurnHash.Write(w)
		return
	}
	rec, err := a.storage.BurnStatus(hash.String())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrBurnNotFound.Write(w)
			return
		}
		ErrStorageFailure.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &BurnStatus{
		Hash:      rec.Hash,
		Status:    rec.Status,
		Value:     rec.Value,
		Pid:       rec.Pid,
		Nullifier: rec.Nullifier,
		Reason:    rec.Reason,
	})
}
