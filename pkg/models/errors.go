package models

import "errors"

// Error kinds shared across packages. Match with errors.Is.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrUnpricedModel     = errors.New("unpriced model")
	ErrPersistence       = errors.New("persistence failure")
	ErrCatchupCycle      = errors.New("catch-up cycle failed")
)
