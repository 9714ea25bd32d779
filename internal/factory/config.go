// Package factory implements StreamFactory: parsing a resource's
// configuration attributes, resolving them to a concrete device, and
// opening (or reopening, on reconfigure) the host stream and backing
// ring buffer pair a Microphone or Speaker resource runs on.
package factory

import (
	"github.com/spf13/viper"

	"github.com/viam-modules/system-audio/internal/audioerr"
)

// Kind distinguishes the two resource directions a Config can
// describe; historical_throttle_ms only applies to microphones and
// volume only applies to speakers.
type Kind int

const (
	KindMicrophone Kind = iota
	KindSpeaker
)

const (
	// DefaultHistorySeconds is the capture/playback ring buffer's
	// window when history_seconds is not configured.
	DefaultHistorySeconds = 30
	// DefaultHistoricalThrottleMS is applied when historical_throttle_ms
	// is not configured.
	DefaultHistoricalThrottleMS = 50
)

// knownAttributeKeys is every attribute Config understands. Anything
// else in a raw attribute map produces a validation warning rather
// than a hard failure, so newer control-plane config stays forward
// compatible.
var knownAttributeKeys = map[string]bool{
	"device_name":             true,
	"sample_rate":             true,
	"num_channels":            true,
	"latency":                 true,
	"historical_throttle_ms":  true,
	"volume":                  true,
	"history_seconds":         true,
}

// Config is a resource's parsed configuration. Fields whose source
// attribute was not present keep their *Set flag false so callers can
// distinguish "explicitly zero" from "fall back to the device's
// default", per §4.7's device-dependent defaults for sample_rate and
// latency.
type Config struct {
	DeviceName string `mapstructure:"device_name"`

	SampleRate    int  `mapstructure:"sample_rate"`
	SampleRateSet bool `mapstructure:"-"`

	NumChannels int `mapstructure:"num_channels"`

	LatencyMS int  `mapstructure:"latency"`
	LatencySet bool `mapstructure:"-"`

	HistoricalThrottleMS int `mapstructure:"historical_throttle_ms"`

	Volume    int  `mapstructure:"volume"`
	VolumeSet bool `mapstructure:"-"`

	HistorySeconds int `mapstructure:"history_seconds"`
}

// DecodeConfig decodes a raw attribute map (as delivered by the
// control plane) into a Config, the way the teacher's Roundtable
// sibling decodes its own component config with viper: defaults are
// registered on a fresh viper instance, the map is merged in, then
// unmarshalled into the typed struct.
func DecodeConfig(attrs map[string]any) (Config, error) {
	v := viper.New()
	v.SetDefault("num_channels", 1)
	v.SetDefault("historical_throttle_ms", DefaultHistoricalThrottleMS)
	v.SetDefault("history_seconds", DefaultHistorySeconds)

	if err := v.MergeConfigMap(attrs); err != nil {
		return Config{}, audioerr.Wrapf(audioerr.ErrInvalidArgument, err, "failed to parse configuration attributes")
	}

	cfg := Config{
		SampleRateSet: v.IsSet("sample_rate"),
		LatencySet:    v.IsSet("latency"),
		VolumeSet:     v.IsSet("volume"),
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, audioerr.Wrapf(audioerr.ErrInvalidArgument, err, "failed to decode configuration attributes")
	}

	return cfg, nil
}

// UnknownKeys returns every key in attrs that Config does not
// recognise.
func UnknownKeys(attrs map[string]any) []string {
	var unknown []string
	for k := range attrs {
		if !knownAttributeKeys[k] {
			unknown = append(unknown, k)
		}
	}
	return unknown
}
