// Package audioerr defines the error taxonomy shared by every layer of
// the audio core: callers distinguish caller mistakes from host/codec
// failures by unwrapping against these sentinels with errors.Is.
package audioerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks caller-supplied data that violates a
	// contract: bad codec, odd PCM16 length, an out-of-range
	// timestamp, a duration exceeding the buffer, volume out of
	// range, a channel-count mismatch on play.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks a named device that is not present, or the
	// absence of any default device for a direction.
	ErrNotFound = errors.New("not found")

	// ErrFormatUnsupported marks a host rejection of the requested
	// 16-bit PCM stream configuration.
	ErrFormatUnsupported = errors.New("format unsupported")

	// ErrHostFailure marks any non-zero return from the audio host:
	// open, start, stop, close, or format-check.
	ErrHostFailure = errors.New("host failure")

	// ErrCodecFailure marks an encoder/decoder initialization or
	// operation failure.
	ErrCodecFailure = errors.New("codec failure")
)

// Wrap annotates msg with sentinel so errors.Is(result, sentinel)
// succeeds.
func Wrap(sentinel error, msg string) error {
	return fmt.Errorf("%w: %s", sentinel, msg)
}

// Wrapf additionally chains cause so both sentinel and cause satisfy
// errors.Is/errors.As against the result.
func Wrapf(sentinel error, cause error, msg string) error {
	if cause == nil {
		return Wrap(sentinel, msg)
	}
	return fmt.Errorf("%w: %s: %w", sentinel, msg, cause)
}
