package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viam-modules/system-audio/internal/codec"
	"github.com/viam-modules/system-audio/internal/stream"
)

// fixedSource never reconfigures; Current always returns the same
// *stream.Output.
type fixedSource struct {
	out     *stream.Output
	latency float64
}

func (f *fixedSource) Current() *stream.Output { return f.out }
func (f *fixedSource) LatencySeconds() float64 { return f.latency }

// swappingSource returns replacement once swapAfter calls to Current
// have happened, simulating a reconfigure mid-Play.
type swappingSource struct {
	original    *stream.Output
	replacement *stream.Output
	swapAfter   int
	calls       int
	latency     float64
}

func (s *swappingSource) Current() *stream.Output {
	s.calls++
	if s.calls > s.swapAfter {
		return s.replacement
	}
	return s.original
}

func (s *swappingSource) LatencySeconds() float64 { return s.latency }

func newOutput(t *testing.T, sampleRate, channels, historySeconds int) *stream.Output {
	t.Helper()
	out, err := stream.NewOutput(sampleRate, channels, historySeconds)
	require.NoError(t, err)
	return out
}

// drainAsync simulates the host's real-time output callback pulling
// from out on a ticker, as would happen in production via the host
// binding's Pull wiring.
func drainAsync(t *testing.T, out *stream.Output, frameSize int, period time.Duration, stop <-chan struct{}) {
	t.Helper()
	go func() {
		buf := make([]int16, frameSize)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				out.Pull(buf)
			}
		}
	}()
}

func TestPlayRejectsMissingCodec(t *testing.T) {
	out := newOutput(t, 48000, 1, 5)
	src := &fixedSource{out: out}

	err := Play(src, []byte{1, 2, 3, 4}, Info{})
	assert.Error(t, err)
}

func TestPlayRejectsOddLengthPCM16(t *testing.T) {
	out := newOutput(t, 48000, 1, 5)
	src := &fixedSource{out: out}

	err := Play(src, []byte{1, 2, 3}, Info{Codec: codec.PCM16, SampleRateHz: 48000, NumChannels: 1})
	assert.Error(t, err)
}

// S8 — speaker channel mismatch.
func TestPlayRejectsChannelCountMismatch(t *testing.T) {
	out := newOutput(t, 48000, 2, 5)
	src := &fixedSource{out: out}

	data := codec.EncodePCM16([]int16{100, 200, 300}, nil) // 1-channel worth of samples
	err := Play(src, data, Info{Codec: codec.PCM16, SampleRateHz: 48000, NumChannels: 1})
	assert.Error(t, err)
}

func TestPlayRejectsAudioLongerThanHistory(t *testing.T) {
	out := newOutput(t, 100, 1, 1) // capacity = 100 samples (1s)
	src := &fixedSource{out: out}

	samples := make([]int16, 200) // 2s worth
	data := codec.EncodePCM16(samples, nil)

	err := Play(src, data, Info{Codec: codec.PCM16, SampleRateHz: 100, NumChannels: 1})
	assert.Error(t, err)
}

func TestPlayWritesSamplesAndWaitsForDrain(t *testing.T) {
	out := newOutput(t, 1000, 1, 5)
	src := &fixedSource{out: out, latency: 0}

	samples := make([]int16, 500)
	for i := range samples {
		samples[i] = int16(i)
	}
	data := codec.EncodePCM16(samples, nil)

	stop := make(chan struct{})
	drainAsync(t, out, 50, time.Millisecond, stop)
	defer close(stop)

	err := Play(src, data, Info{Codec: codec.PCM16, SampleRateHz: 1000, NumChannels: 1})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.PlaybackCursor(), uint64(500))
}

func TestPlayResamplesWhenRateDiffers(t *testing.T) {
	out := newOutput(t, 1000, 1, 5)
	src := &fixedSource{out: out}

	samples := make([]int16, 500) // 500 samples @ 500Hz = 1s -> resampled to 1000 samples @1000Hz
	data := codec.EncodePCM16(samples, nil)

	stop := make(chan struct{})
	drainAsync(t, out, 100, time.Millisecond, stop)
	defer close(stop)

	err := Play(src, data, Info{Codec: codec.PCM16, SampleRateHz: 500, NumChannels: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1000, out.WritePosition(), 2)
}

// §5 cancellation — play exits without error if the context is
// swapped mid-wait by a reconfigure.
func TestPlayExitsInterruptedWhenStreamSwapped(t *testing.T) {
	original := newOutput(t, 1000, 1, 5)
	replacement := newOutput(t, 1000, 1, 5)
	src := &swappingSource{original: original, replacement: replacement, swapAfter: 1}

	samples := make([]int16, 500)
	data := codec.EncodePCM16(samples, nil)

	// original is never drained, so the wait loop would block forever
	// if the swap weren't honoured.
	err := Play(src, data, Info{Codec: codec.PCM16, SampleRateHz: 1000, NumChannels: 1})
	assert.NoError(t, err)
}
