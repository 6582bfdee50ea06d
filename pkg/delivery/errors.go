package delivery

import "errors"

var (
	// ErrUnknownMethod is returned when a delivery method string is not recognized
	ErrUnknownMethod = errors.New("unknown delivery method")

	// ErrDeliveryFailed is returned when a channel send fails; it drives the retry path
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrNoRecipientAddress is returned when a user has no address for the channel
	ErrNoRecipientAddress = errors.New("no recipient address for user")

	// ErrInvalidConfig is returned when adapter configuration is incomplete
	ErrInvalidConfig = errors.New("invalid adapter configuration")
)
