package core

import "errors"

// Error taxonomy for the polling pipeline. All of these are recovered at
// the boundary that produces them; none may terminate the polling loop.
var (
	// ErrUnreachable marks a probe or fetch that failed or timed out.
	ErrUnreachable = errors.New("camera unreachable")
	// ErrDecodeFailure marks bytes that arrived but are not a valid image.
	ErrDecodeFailure = errors.New("frame decode failed")
	// ErrStreamClosed marks a persistent stream handle that was invalidated.
	ErrStreamClosed = errors.New("stream closed")
	// ErrDeliveryFailure marks an alert the transport rejected or timed out.
	ErrDeliveryFailure = errors.New("alert delivery failed")
	// ErrInvalidConfig marks an out-of-range settings value. Surfaced
	// synchronously to the caller; state is left unchanged.
	ErrInvalidConfig = errors.New("invalid configuration value")
	// ErrCameraNotFound marks an operation against an unknown camera ID.
	ErrCameraNotFound = errors.New("camera not found")
)
