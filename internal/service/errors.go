// internal/service/errors.go
package service

import (
	"errors"

	"order-reconciler/internal/gateway"
)

var (
	// ErrUnresolvedMaterialization means the payment succeeded but neither an
	// existing order nor a usable cart could be found. The session is recorded
	// for operator follow-up.
	ErrUnresolvedMaterialization = errors.New("payment succeeded but order could not be materialized")
	ErrInvalidSignature          = gateway.ErrInvalidSignature
	ErrSessionNotOwned           = errors.New("checkout session belongs to another user")
	ErrInvalidSessionMetadata    = errors.New("checkout session metadata is missing or malformed")
	ErrCartNotReady              = errors.New("cart is missing, empty or not owned by the caller")
	ErrInvalidAmount             = errors.New("amount must be positive")
	ErrInvalidPricingConfig      = errors.New("pricing values must not be negative")
	ErrInvalidDateRange          = errors.New("invalid audit date range")
)
