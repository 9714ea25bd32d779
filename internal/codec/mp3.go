package codec

import (
	"bytes"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/viam-modules/system-audio/internal/audioerr"
)

// NativeMP3Encoder is the narrow surface mp3.go needs from whatever
// native MP3 encoding library backs it. mp3_lame.go provides the real
// implementation; tests (in this package and others, such as
// internal/capture) can substitute a fake via NewNativeMP3Encoder.
type NativeMP3Encoder interface {
	FrameSize() int
	EncoderDelay() int
	Encode(samples []int16) ([]byte, error)
	Flush() ([]byte, error)
	Close() error
}

// encoderState is the MP3 encoder's lifecycle: Uninitialised ->
// Initialised -> Flushed -> Cleaned.
type encoderState int

const (
	Uninitialised encoderState = iota
	Initialised
	Flushed
	Cleaned
)

// Encoder is a stateful MP3 encoder. An Encoder must not be reused
// across a sample-rate or channel change: Cleanup, then Initialise
// again.
type Encoder struct {
	state      encoderState
	native     NativeMP3Encoder
	SampleRate int
	Channels   int

	// EncoderDelay is the number of samples per channel the encoder
	// buffers internally before producing output.
	EncoderDelay int
	// FrameSize is the number of samples per channel in one MP3 frame.
	FrameSize int
}

// Initialise configures the encoder for sample_rate/channels. Only
// mono and stereo are supported.
func (e *Encoder) Initialise(sampleRate, channels int) error {
	if channels != 1 && channels != 2 {
		return audioerr.Wrap(audioerr.ErrCodecFailure, fmt.Sprintf("mp3 encoder supports only mono or stereo, got %d channels", channels))
	}

	native, err := NewNativeMP3Encoder(sampleRate, channels)
	if err != nil {
		return audioerr.Wrapf(audioerr.ErrCodecFailure, err, "mp3 encoder initialisation failed")
	}

	e.native = native
	e.SampleRate = sampleRate
	e.Channels = channels
	e.EncoderDelay = native.EncoderDelay()
	e.FrameSize = native.FrameSize()
	e.state = Initialised
	return nil
}

// Encode appends framed MP3 bytes for count interleaved PCM16 samples
// to out. count == 0 is tolerated and is a no-op.
func (e *Encoder) Encode(samples []int16, out []byte) ([]byte, error) {
	if e.state != Initialised && e.state != Flushed {
		return out, audioerr.Wrap(audioerr.ErrCodecFailure, "mp3 encoder not initialised")
	}
	if len(samples) == 0 {
		return out, nil
	}

	encoded, err := e.native.Encode(samples)
	if err != nil {
		return out, audioerr.Wrapf(audioerr.ErrCodecFailure, err, "mp3 encode failed")
	}
	return append(out, encoded...), nil
}

// Flush appends the encoder's internal lookahead tail to out. Called
// once at the end of a capture iterator so the last ~EncoderDelay
// samples per channel are not lost.
func (e *Encoder) Flush(out []byte) ([]byte, error) {
	if e.native == nil {
		return out, nil
	}
	flushed, err := e.native.Flush()
	if err != nil {
		return out, audioerr.Wrapf(audioerr.ErrCodecFailure, err, "mp3 flush failed")
	}
	e.state = Flushed
	return append(out, flushed...), nil
}

// Cleanup releases the native handle and zeroes the encoder's fields.
// Safe to call on an already-cleaned or never-initialised encoder.
func (e *Encoder) Cleanup() error {
	if e.native != nil {
		if err := e.native.Close(); err != nil {
			return audioerr.Wrapf(audioerr.ErrCodecFailure, err, "mp3 encoder cleanup failed")
		}
	}
	e.native = nil
	e.SampleRate = 0
	e.Channels = 0
	e.EncoderDelay = 0
	e.FrameSize = 0
	e.state = Cleaned
	return nil
}

const maxConsecutiveZeroDecodes = 10

// DecodeMP3 decodes an MP3 byte stream to PCM16 samples. It skips an
// optional ID3v2 header, scans forward for the first MPEG frame sync,
// and decodes via go-mp3. go-mp3's own PCM output is always
// interleaved stereo regardless of the source channel count, so the
// authoritative channel count instead comes from the 2-bit channel
// mode field in the frame header go-mp3 is about to decode (0b11 is
// single-channel/mono, anything else is stereo or dual channel);
// decoded mono is downmixed back out of go-mp3's doubled L=R pairs so
// it goes out as a true mono sample sequence. The discovered sample
// rate comes from the first successfully decoded frame.
func DecodeMP3(data []byte) (samples []int16, sampleRate, channels int, err error) {
	tail, err := skipToFrameSync(data)
	if err != nil {
		return nil, 0, 0, err
	}

	channels, err = frameChannelCount(tail)
	if err != nil {
		return nil, 0, 0, err
	}

	dec, err := gomp3.NewDecoder(bytes.NewReader(tail))
	if err != nil {
		return nil, 0, 0, audioerr.Wrapf(audioerr.ErrCodecFailure, err, "mp3 decoder init failed")
	}

	sampleRate = dec.SampleRate()

	var stereo []int16
	buf := make([]byte, 8192)
	consecutiveZeros := 0
	for {
		n, readErr := dec.Read(buf)
		if n > 0 {
			consecutiveZeros = 0
			decoded, decErr := DecodePCM16(buf[:n], nil)
			if decErr != nil {
				return nil, 0, 0, decErr
			}
			stereo = append(stereo, decoded...)
		} else {
			consecutiveZeros++
		}

		if readErr == io.EOF || consecutiveZeros >= maxConsecutiveZeroDecodes {
			break
		}
		if readErr != nil && readErr != io.EOF {
			return nil, 0, 0, audioerr.Wrapf(audioerr.ErrCodecFailure, readErr, "mp3 decode failed")
		}
	}

	if channels == 1 {
		samples = make([]int16, len(stereo)/2)
		for i := range samples {
			samples[i] = stereo[i*2]
		}
	} else {
		samples = stereo
	}

	return samples, sampleRate, channels, nil
}

// frameChannelCount reads the 2-bit channel mode field out of the
// 4-byte MPEG frame header located by skipToFrameSync (bits 7-6 of the
// 4th header byte): 0b11 is single channel (mono), anything else
// (stereo, joint stereo, dual channel) decodes through go-mp3 as two
// channels.
func frameChannelCount(tail []byte) (int, error) {
	if len(tail) < 4 {
		return 0, audioerr.Wrap(audioerr.ErrCodecFailure, "mp3 frame header truncated")
	}
	const channelModeMono = 0x03
	mode := (tail[3] >> 6) & 0x03
	if mode == channelModeMono {
		return 1, nil
	}
	return 2, nil
}

// skipToFrameSync skips a leading ID3v2 header (if present) and scans
// forward for the first MPEG frame sync: a 0xFF byte followed by a
// byte whose top three bits are all set.
func skipToFrameSync(data []byte) ([]byte, error) {
	offset := 0
	if len(data) >= 10 && string(data[0:3]) == "ID3" {
		size := synchsafeSize(data[6:10])
		offset = 10 + size
	}

	for i := offset; i+1 < len(data); i++ {
		if data[i] == 0xFF && data[i+1]&0xE0 == 0xE0 {
			return data[i:], nil
		}
	}

	return nil, audioerr.Wrap(audioerr.ErrCodecFailure, "mp3 frame sync not found")
}

// synchsafeSize decodes a 4-byte 28-bit big-endian synchsafe integer
// as used in the ID3v2 header size field.
func synchsafeSize(b []byte) int {
	return int(b[0])<<21 | int(b[1])<<14 | int(b[2])<<7 | int(b[3])
}
