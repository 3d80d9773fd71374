package validator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vocdoni/utt-core/crypto/utt"
	"github.com/vocdoni/utt-core/log"
	"github.com/vocdoni/utt-core/storage"
	"github.com/vocdoni/utt-core/trace"
)

// pendingItem is a burn taken from the queue, with its queue key.
type pendingItem struct {
	key  []byte
	burn *utt.BurnOp
	span trace.SpanContext
}

// ProcessPending takes up to Config.BatchSize burns from the queue,
// validates them in parallel and stores the outcome of each one. It returns
// the number of burns taken from the queue.
func (v *Validator) ProcessPending(ctx context.Context) (int, error) {
	var items []*pendingItem
	for len(items) < v.cfg.BatchSize {
		pb, key, err := v.stg.NextBurn()
		if err != nil {
			if errors.Is(err, storage.ErrNoMoreElements) {
				break
			}
			v.release(items)
			return 0, fmt.Errorf("next burn: %w", err)
		}
		span := trace.CreateChildSpanFromBinary(pb.Trace, "validate-burn", pb.CorrelationID)
		burn, err := utt.DecodeBurnOp(pb.Data)
		if err != nil {
			log.Warnw("discarding undecodable burn", append(span.LogFields(), "error", err.Error())...)
			if err := v.stg.MarkBurnRejected(key, &storage.BurnRecord{Reason: ErrUndecodable.Error()}); err != nil {
				log.Warnw("failed to discard burn", "error", err.Error())
			}
			continue
		}
		items = append(items, &pendingItem{key: key, burn: burn, span: span})
	}
	if len(items) == 0 {
		return 0, nil
	}

	startTime := time.Now()
	burns := make([]*utt.BurnOp, len(items))
	for i, it := range items {
		burns[i] = it.burn
	}
	verdicts, err := v.ValidateBatch(ctx, burns)
	if err != nil {
		v.release(items)
		return 0, err
	}

	// results are stored sequentially, so the first valid burn of a
	// nullifier within the batch wins
	for i, it := range items {
		v.store(it, verdicts[i].Valid)
	}
	log.Debugw("burn batch processed",
		"count", len(items),
		"duration", time.Since(startTime).String(),
	)
	return len(items), nil
}

// store records the verdict of a validated burn.
func (v *Validator) store(it *pendingItem, valid bool) {
	rec := &storage.BurnRecord{
		Hash:      it.burn.HashHex(),
		Value:     it.burn.Value(),
		Pid:       it.burn.OwnerPid(),
		Nullifier: it.burn.NullifierBytes().Bytes(),
	}
	fields := append(it.span.LogFields(), "hash", rec.Hash, "value", rec.Value)
	if !valid {
		rec.Reason = ErrInvalidBurn.Error()
		v.reject(it.key, rec, fields)
		return
	}
	err := v.stg.MarkBurnDone(it.key, rec)
	switch {
	case err == nil:
		log.Infow("burn accepted", fields...)
	case errors.Is(err, storage.ErrNullifierExists):
		rec.Reason = err.Error()
		v.reject(it.key, rec, fields)
	default:
		log.Warnw("failed to accept burn", append(fields, "error", err.Error())...)
		if err := v.stg.ReleaseBurn(it.key); err != nil {
			log.Warnw("failed to release burn", "error", err.Error())
		}
	}
}

func (v *Validator) reject(key []byte, rec *storage.BurnRecord, fields []any) {
	if err := v.stg.MarkBurnRejected(key, rec); err != nil {
		log.Warnw("failed to reject burn", append(fields, "error", err.Error())...)
		return
	}
	log.Infow("burn rejected", append(fields, "reason", rec.Reason)...)
}

// release returns the reservations of items to the queue.
func (v *Validator) release(items []*pendingItem) {
	for _, it := range items {
		if err := v.stg.ReleaseBurn(it.key); err != nil {
			log.Warnw("failed to release burn", "error", err.Error())
		}
	}
}
