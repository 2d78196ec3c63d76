package models

import "errors"

// Failure taxonomy for a session. Everything except ErrInvalidConfig is
// recoverable: the pipeline degrades the affected input and keeps going.
var (
	ErrDataUnavailable   = errors.New("data unavailable")
	ErrReasoningTimeout  = errors.New("reasoning timeout")
	ErrReasoningFailed   = errors.New("reasoning failed")
	ErrMemoryUnavailable = errors.New("memory unavailable")
	ErrSessionDeadline   = errors.New("session deadline exceeded")
	ErrInvalidConfig     = errors.New("invalid configuration")
)
