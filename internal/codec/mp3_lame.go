package codec

import (
	"fmt"

	"github.com/viert/lame"
)

// lameEncoder adapts github.com/viert/lame's libmp3lame binding to the
// NativeMP3Encoder interface mp3.go programs against. It is the only
// file in this package that names lame's API directly, so swapping
// encoders later touches one file.
type lameEncoder struct {
	enc *lame.Lame
}

// NewNativeMP3Encoder is a variable (rather than a plain func) so
// tests — in this package and others, such as internal/capture — can
// substitute a fake encoder without touching the native library.
var NewNativeMP3Encoder = func(sampleRate, channels int) (NativeMP3Encoder, error) {
	enc, err := lame.NewEncoder()
	if err != nil {
		return nil, fmt.Errorf("lame: failed to allocate encoder: %w", err)
	}

	enc.SetInSamplerate(sampleRate)
	enc.SetNumChannels(channels)
	enc.SetBitrate(192)
	enc.SetQuality(2)
	enc.SetMode(modeForChannels(channels))

	if err := enc.InitParams(); err != nil {
		enc.Close()
		return nil, fmt.Errorf("lame: failed to initialize encoder params: %w", err)
	}

	return &lameEncoder{enc: enc}, nil
}

func modeForChannels(channels int) lame.Mode {
	if channels == 1 {
		return lame.ModeMono
	}
	return lame.ModeJointStereo
}

func (l *lameEncoder) FrameSize() int { return l.enc.FrameSize() }

func (l *lameEncoder) EncoderDelay() int { return l.enc.EncoderDelay() }

func (l *lameEncoder) Encode(samples []int16) ([]byte, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	out, err := l.enc.EncodeInterleaved(samples)
	if err != nil {
		return nil, fmt.Errorf("lame: encode failed: %w", err)
	}
	return out, nil
}

func (l *lameEncoder) Flush() ([]byte, error) {
	out, err := l.enc.EncodeFlush()
	if err != nil {
		return nil, fmt.Errorf("lame: flush failed: %w", err)
	}
	return out, nil
}

func (l *lameEncoder) Close() error {
	l.enc.Close()
	return nil
}
