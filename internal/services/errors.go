package services

import "errors"

var (
	ErrMissingField        = errors.New("missing required field")
	ErrInvalidDeliverySlot = errors.New("invalid delivery slot")
	ErrAboveCODLimit       = errors.New("order amount above cash on delivery limit")
	ErrInvalidSignature    = errors.New("payment confirmation is not authentic")
	ErrNotOnlineOrder      = errors.New("order is not paid online")
	// ErrRequestInProgress is returned when an Idempotency-Key is reused while
	// the first request holding it is still running or has failed.
	ErrRequestInProgress = errors.New("request with this idempotency key is already in progress")
)
