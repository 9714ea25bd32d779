// Package stream extends ring.Buffer with the direction-specific
// timing state a microphone input stream and a speaker output stream
// each need: the former maps sample indices to wall-clock instants,
// the latter tracks how far the host has drained the ring.
package stream

import (
	"sync/atomic"
	"time"

	"github.com/viam-modules/system-audio/internal/ring"
)

// Input pairs a ring.Buffer with the anchoring state needed to answer
// "when was sample N captured?" and "which sample corresponds to wall
// time T?". The anchor is set exactly once, by the first producer
// callback.
type Input struct {
	*ring.Buffer

	SampleRate int
	Channels   int

	streamStartWall  atomic.Value // time.Time
	adcAnchor        atomic.Value // time.Duration
	firstCallbackSeen atomic.Bool
}

// NewInput constructs an Input stream context over a freshly sized
// ring buffer.
func NewInput(sampleRate, channels, historySeconds int) (*Input, error) {
	buf, err := ring.New(sampleRate, channels, historySeconds)
	if err != nil {
		return nil, err
	}
	return &Input{Buffer: buf, SampleRate: sampleRate, Channels: channels}, nil
}

// AnchorFirstCallback records the wall-clock instant and host ADC time
// of the very first producer callback. It is a no-op on every call
// after the first; callers invoke it unconditionally at the top of
// every callback, before announcing any sample from that callback.
func (in *Input) AnchorFirstCallback(now time.Time, adcTime time.Duration) {
	if in.firstCallbackSeen.CompareAndSwap(false, true) {
		in.streamStartWall.Store(now)
		in.adcAnchor.Store(adcTime)
	}
}

// StreamStartWall returns the wall-clock instant recorded for the
// first callback. Valid only once AnchorFirstCallback has run.
func (in *Input) StreamStartWall() time.Time {
	v, _ := in.streamStartWall.Load().(time.Time)
	return v
}

// ADCAnchor returns the host-reported ADC time of the first sample of
// the first callback.
func (in *Input) ADCAnchor() time.Duration {
	v, _ := in.adcAnchor.Load().(time.Duration)
	return v
}

// FirstCallbackSeen reports whether the anchor has been established.
func (in *Input) FirstCallbackSeen() bool {
	return in.firstCallbackSeen.Load()
}

// Timestamp maps a sample index to the wall-clock instant at which it
// was captured, per the formula in the data model:
//
//	stream_start_wall + (sample_index / channels) * 1e9 / sample_rate ns
//
// The division by channels is exact (not truncated to whole frames);
// only the final nanosecond count is floored.
func (in *Input) Timestamp(sampleIndex uint64) time.Time {
	perSecond := uint64(in.SampleRate) * uint64(in.Channels)
	ns := sampleIndex/perSecond*1_000_000_000 + sampleIndex%perSecond*1_000_000_000/perSecond
	return in.StreamStartWall().Add(time.Duration(ns))
}

// SampleIndex maps a wall-clock instant to the sample index whose
// capture time is closest at or before ts, per:
//
//	((ts - stream_start_wall) / 1e9) * sample_rate * channels, floored
func (in *Input) SampleIndex(ts time.Time) int64 {
	deltaNs := ts.Sub(in.StreamStartWall()).Nanoseconds()
	if deltaNs < 0 {
		return -1
	}
	return (deltaNs * int64(in.SampleRate) * int64(in.Channels)) / 1_000_000_000
}
