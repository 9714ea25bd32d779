// Package validate implements ConfigValidator: a pure function that
// checks a resource's raw configuration attributes against the typed
// rules StreamFactory otherwise enforces at open time, without
// touching the host.
package validate

import (
	"fmt"

	"github.com/viam-modules/system-audio/internal/audioerr"
	"github.com/viam-modules/system-audio/internal/factory"
)

// Validate decodes attrs for the given resource kind and applies the
// typed checks from §4.7's configuration parsing: sample_rate > 0,
// num_channels > 0, latency >= 0, historical_throttle_ms >= 0
// (microphone only), volume in [0,100] (speaker only). A field
// present with the wrong type is a hard failure (surfaced by
// DecodeConfig); an unrecognised attribute key is a warning only, so
// newer control-plane config stays forward compatible.
//
// Validate depends only on attrs and kind: calling it twice with the
// same arguments always produces the same result.
func Validate(attrs map[string]any, kind factory.Kind) (warnings []string, err error) {
	for _, key := range factory.UnknownKeys(attrs) {
		warnings = append(warnings, fmt.Sprintf("unrecognised configuration attribute %q", key))
	}

	cfg, err := factory.DecodeConfig(attrs)
	if err != nil {
		return warnings, err
	}

	if cfg.SampleRateSet && cfg.SampleRate <= 0 {
		return warnings, audioerr.Wrap(audioerr.ErrInvalidArgument, fmt.Sprintf("sample_rate must be positive, got %d", cfg.SampleRate))
	}

	if cfg.NumChannels <= 0 {
		return warnings, audioerr.Wrap(audioerr.ErrInvalidArgument, fmt.Sprintf("num_channels must be positive, got %d", cfg.NumChannels))
	}

	if cfg.LatencySet && cfg.LatencyMS < 0 {
		return warnings, audioerr.Wrap(audioerr.ErrInvalidArgument, fmt.Sprintf("latency must be non-negative, got %d", cfg.LatencyMS))
	}

	switch kind {
	case factory.KindMicrophone:
		if cfg.HistoricalThrottleMS < 0 {
			return warnings, audioerr.Wrap(audioerr.ErrInvalidArgument, fmt.Sprintf("historical_throttle_ms must be non-negative, got %d", cfg.HistoricalThrottleMS))
		}
	case factory.KindSpeaker:
		if cfg.VolumeSet && (cfg.Volume < 0 || cfg.Volume > 100) {
			return warnings, audioerr.Wrap(audioerr.ErrInvalidArgument, fmt.Sprintf("volume must be in [0,100], got %d", cfg.Volume))
		}
	}

	return warnings, nil
}
