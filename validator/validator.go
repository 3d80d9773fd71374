// Package validator provides the worker that takes queued burn operations,
// checks them against the authority keys and the spent nullifiers set, and
// records them as accepted or rejected.
package validator

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/vocdoni/utt-core/crypto/utt"
	"github.com/vocdoni/utt-core/log"
	"github.com/vocdoni/utt-core/storage"
	"github.com/vocdoni/utt-core/types"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultCacheSize is the number of verdicts kept by default.
	DefaultCacheSize = 1024
	// DefaultTickInterval is the time to wait for new burns when the queue
	// is empty.
	DefaultTickInterval = time.Second
)

var (
	// ErrInvalidBurn is the rejection reason of burns whose proof or
	// signatures do not verify.
	ErrInvalidBurn = errors.New("burn operation does not verify")
	// ErrUndecodable is the rejection reason of queued data that is not a
	// burn operation.
	ErrUndecodable = errors.New("malformed burn operation")
)

// Config holds the validator settings. Zero values are replaced by the
// defaults.
type Config struct {
	// Workers bounds the number of burns validated in parallel.
	Workers int
	// CacheSize is the number of verdicts remembered by burn hash.
	CacheSize int
	// TickInterval is the polling period while the queue is empty.
	TickInterval time.Duration
	// BatchSize is the maximum number of burns taken per round.
	BatchSize int
}

func (c *Config) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = types.BurnsPerBatch
	}
}

// Verdict is the outcome of validating one burn operation.
type Verdict struct {
	Hash  string
	Valid bool
}

// Validator checks burn operations under a fixed set of parameters and
// authority keys.
type Validator struct {
	stg    *storage.Storage
	params *utt.Params
	bankPK *utt.RandSigPK
	regPK  *utt.RegAuthPK
	cfg    Config

	verdicts *lru.Cache

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Validator. The storage may be nil if the validator is only
// used through ValidateBatch.
func New(stg *storage.Storage, params *utt.Params, bankPK *utt.RandSigPK, regPK *utt.RegAuthPK, cfg Config) (*Validator, error) {
	if params == nil || bankPK == nil || regPK == nil {
		return nil, fmt.Errorf("params and authority keys are required")
	}
	cfg.setDefaults()
	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create verdict cache: %w", err)
	}
	log.Debugw("validator initialized",
		"workers", cfg.Workers,
		"cacheSize", cfg.CacheSize,
		"batchSize", cfg.BatchSize,
	)
	return &Validator{
		stg:      stg,
		params:   params,
		bankPK:   bankPK,
		regPK:    regPK,
		cfg:      cfg,
		verdicts: cache,
	}, nil
}

// Validate reports whether b verifies. Verdicts are cached by burn hash,
// so resubmissions of the same encoded operation are not verified twice.
func (v *Validator) Validate(b *utt.BurnOp) bool {
	if !b.IsValid() {
		return false
	}
	hash := b.HashHex()
	if ok, found := v.verdicts.Get(hash); found {
		return ok.(bool)
	}
	ok := b.Validate(v.params, v.bankPK, v.regPK)
	v.verdicts.Add(hash, ok)
	return ok
}

// ValidateBatch validates burns in parallel, with at most Config.Workers
// validations running at once. The verdicts are returned in input order.
// It only fails if ctx is canceled.
func (v *Validator) ValidateBatch(ctx context.Context, burns []*utt.BurnOp) ([]Verdict, error) {
	verdicts := make([]Verdict, len(burns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.Workers)
	for i, b := range burns {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			verdicts[i] = Verdict{Hash: b.HashHex(), Valid: v.Validate(b)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return verdicts, nil
}

// Start begins consuming the storage burn queue in the background until
// ctx is canceled or Stop is called.
func (v *Validator) Start(ctx context.Context) error {
	if v.stg == nil {
		return fmt.Errorf("validator has no storage")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		return fmt.Errorf("validator already running")
	}
	ctx, v.cancel = context.WithCancel(ctx)
	v.done = make(chan struct{})
	go v.run(ctx)
	log.Infow("validator started")
	return nil
}

// Stop halts the queue consumer and waits for the current round to end.
// It is safe to call Stop multiple times.
func (v *Validator) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel == nil {
		return
	}
	v.cancel()
	<-v.done
	v.cancel = nil
	log.Infow("validator stopped")
}

func (v *Validator) run(ctx context.Context) {
	defer close(v.done)
	ticker := time.NewTicker(v.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := v.ProcessPending(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Errorw(err, "failed to process pending burns")
		}
		if n > 0 {
			continue
		}
		// queue is empty, wait for the next tick or context cancellation
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
