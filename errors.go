package mailprobe

import "github.com/pkg/errors"

var (
	// ErrInvalidConfig is returned by the Verify methods when the sender
	// identity, HELO name or port contain whitespace or angle brackets,
	// or the timeout is negative.
	ErrInvalidConfig = errors.New("mailprobe: invalid Config")

	// ErrInvalidProxy is returned by the Verify methods when WithProxy
	// was given a URL that cannot be used.
	ErrInvalidProxy = errors.New("mailprobe: invalid proxy")
)
