package stream

import (
	"sync/atomic"

	"github.com/viam-modules/system-audio/internal/ring"
)

// Output pairs a ring.Buffer with a playback cursor: the count of
// samples the audio host has consumed from the buffer. Only the
// real-time output callback mutates the cursor.
type Output struct {
	*ring.Buffer

	SampleRate int
	Channels   int

	playbackCursor atomic.Uint64
	readPos        uint64
}

// NewOutput constructs an Output stream context over a freshly sized
// ring buffer.
func NewOutput(sampleRate, channels, historySeconds int) (*Output, error) {
	buf, err := ring.New(sampleRate, channels, historySeconds)
	if err != nil {
		return nil, err
	}
	return &Output{Buffer: buf, SampleRate: sampleRate, Channels: channels}, nil
}

// PlaybackCursor returns the total number of samples the host has
// drained from this stream so far.
func (out *Output) PlaybackCursor() uint64 {
	return out.playbackCursor.Load()
}

// Pull is called from the real-time output callback: it drains up to
// len(dst) samples into dst, zero-filling any shortfall with silence,
// and advances the playback cursor by exactly the number drained
// (not by len(dst)). Returns the number of real (non-silence) samples
// written.
func (out *Output) Pull(dst []int16) int {
	n := out.Buffer.ReadSamples(dst, &out.readPos)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	out.playbackCursor.Add(uint64(n))
	return n
}
