package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/utt-core/crypto/utt"
	"github.com/vocdoni/utt-core/log"
	"github.com/vocdoni/utt-core/storage"
	"github.com/vocdoni/utt-core/trace"
)

// BurnUpdate is a raw burn operation received from a replica, together
// with the binary span context and correlation id of the submission that
// produced it.
type BurnUpdate struct {
	Data          []byte
	Trace         []byte
	CorrelationID string
}

// UpdateSource defines the interface of a replica update feed.
type UpdateSource interface {
	SubscribeBurns(ctx context.Context, interval time.Duration) (<-chan *BurnUpdate, error)
}

// UpdateMonitor represents a service that consumes the burns announced by
// an update feed and stores them in the storage queue.
type UpdateMonitor struct {
	source   UpdateSource
	storage  *storage.Storage
	interval time.Duration
	mu       sync.Mutex
	cancel   context.CancelFunc
}

// NewUpdateMonitor creates a new UpdateMonitor service.
func NewUpdateMonitor(source UpdateSource, stg *storage.Storage, interval time.Duration) *UpdateMonitor {
	return &UpdateMonitor{
		source:   source,
		storage:  stg,
		interval: interval,
	}
}

// Start begins monitoring for new burns. It returns an error if the service
// is already running or if it fails to subscribe to the feed.
func (um *UpdateMonitor) Start(ctx context.Context) error {
	um.mu.Lock()
	defer um.mu.Unlock()

	if um.cancel != nil {
		return fmt.Errorf("service already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	um.cancel = cancel

	updates, err := um.source.SubscribeBurns(ctx, um.interval)
	if err != nil {
		um.cancel = nil
		cancel()
		return fmt.Errorf("failed to start update monitoring: %w", err)
	}

	go um.monitorUpdates(ctx, updates)
	return nil
}

// Stop halts the monitoring service.
func (um *UpdateMonitor) Stop() {
	um.mu.Lock()
	defer um.mu.Unlock()

	if um.cancel != nil {
		um.cancel()
		um.cancel = nil
	}
}

func (um *UpdateMonitor) monitorUpdates(ctx context.Context, updates <-chan *BurnUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				log.Infow("update feed closed")
				return
			}
			if err := um.handleUpdate(u); err != nil {
				log.Warnw("discarding burn update", "correlationId", u.CorrelationID, "error", err.Error())
			}
		}
	}
}

// handleUpdate queues the burn carried by u, continuing the trace of the
// replica that announced it.
func (um *UpdateMonitor) handleUpdate(u *BurnUpdate) error {
	span := trace.CreateChildSpanFromBinary(u.Trace, "replica-burn", u.CorrelationID)
	burn, err := utt.DecodeBurnOp(u.Data)
	if err != nil {
		return err
	}
	spent, err := um.storage.HasNullifier(burn.NullifierBytes().Bytes())
	if err != nil {
		return err
	}
	if spent {
		log.Debugw("burn update spends a known nullifier", append(span.LogFields(), "nullifier", burn.Nullifier())...)
		return nil
	}
	spanData, err := trace.Inject(span)
	if err != nil {
		return err
	}
	hash := burn.HashHex()
	err = um.storage.PushBurn(hash, &storage.PendingBurn{
		Data:          u.Data,
		CorrelationID: span.CorrelationID,
		Trace:         spanData,
		ReceivedAt:    time.Now(),
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		log.Debugw("burn update already known", append(span.LogFields(), "hash", hash)...)
		return nil
	}
	if err != nil {
		return err
	}
	log.Debugw("new burn from update feed", append(span.LogFields(), "hash", hash)...)
	return nil
}
