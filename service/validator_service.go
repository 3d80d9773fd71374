package service

import (
	"context"
	"fmt"

	"github.com/vocdoni/utt-core/storage"
	"github.com/vocdoni/utt-core/validator"
)

// ValidatorService represents a service that validates queued burns in the
// background.
type ValidatorService struct {
	validator *validator.Validator
}

// NewValidator creates the burn validation service. Queued burns are
// checked against the authorities and the spent nullifiers set, and
// recorded as accepted or rejected.
func NewValidator(stg *storage.Storage, auth *Authorities, cfg validator.Config) (*ValidatorService, error) {
	if auth == nil {
		return nil, fmt.Errorf("missing authorities")
	}
	v, err := validator.New(stg, auth.Params, auth.BankPK, auth.RegPK, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}
	return &ValidatorService{validator: v}, nil
}

// Start begins the burn validation service. It returns an error if the
// service is already running.
func (vs *ValidatorService) Start(ctx context.Context) error {
	return vs.validator.Start(ctx)
}

// Stop halts the burn validation service.
func (vs *ValidatorService) Stop() {
	vs.validator.Stop()
}

// Validator returns the underlying validator.
func (vs *ValidatorService) Validator() *validator.Validator {
	return vs.validator
}
