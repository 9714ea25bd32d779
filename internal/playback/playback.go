// Package playback implements PlaybackService: decoding a caller's
// audio bytes to PCM16, resampling to the speaker's rate if needed,
// writing into the live OutputStreamContext, and waiting for the host
// to drain what was written before returning.
package playback

import (
	"time"

	"github.com/viam-modules/system-audio/internal/audioerr"
	"github.com/viam-modules/system-audio/internal/codec"
	"github.com/viam-modules/system-audio/internal/resample"
	"github.com/viam-modules/system-audio/internal/stream"
)

const drainPollInterval = 10 * time.Millisecond

// sleep is a variable so tests can make the drain-wait loop
// deterministic without sleeping wall-clock time.
var sleep = time.Sleep

// Info describes the codec and format of audio handed to Play.
// SampleRateHz and NumChannels are authoritative for every codec
// except MP3, where the decoded stream's own rate/channel count wins.
type Info struct {
	Codec        codec.Tag
	SampleRateHz int
	NumChannels  int
}

// Source supplies Play with the resource's current live output stream
// and the suggested post-drain latency. Both may change mid-call if
// the resource is reconfigured; Current() returning a different
// pointer than the one Play snapshotted is how a reconfigure-during-
// play is detected.
type Source interface {
	Current() *stream.Output
	LatencySeconds() float64
}

// Play decodes audioData per info, resamples it to out's sample rate
// if needed, writes it into the live output stream, and blocks until
// the host has drained it (or the stream is swapped out from under
// the call by a reconfigure, in which case Play returns nil early per
// §5's "exit interrupted without error").
func Play(src Source, audioData []byte, info Info) error {
	if info.Codec == "" {
		return audioerr.Wrap(audioerr.ErrInvalidArgument, "play requires a codec tag")
	}

	samples, sampleRate, channels, err := decode(info, audioData)
	if err != nil {
		return err
	}

	out := src.Current()
	if out == nil {
		return audioerr.Wrap(audioerr.ErrInvalidArgument, "no live output stream bound")
	}

	if channels != out.Channels {
		return audioerr.Wrap(audioerr.ErrInvalidArgument, "decoded channel count does not match speaker's current channel count")
	}

	if sampleRate != out.SampleRate {
		samples, err = resample.Resample(sampleRate, out.SampleRate, channels, samples)
		if err != nil {
			return audioerr.Wrapf(audioerr.ErrInvalidArgument, err, "resample failed")
		}
	}

	numSamples := uint64(len(samples))
	if out.Capacity() > 0 && numSamples > out.Capacity() {
		return audioerr.Wrap(audioerr.ErrInvalidArgument, "audio too long for the output buffer's history")
	}

	startPosition := out.WritePosition()
	out.WriteSamples(samples)

	for {
		current := src.Current()
		if current != out {
			return nil
		}
		if current.PlaybackCursor()-startPosition >= numSamples {
			break
		}
		sleep(drainPollInterval)
	}

	sleep(time.Duration(src.LatencySeconds() * float64(time.Second)))
	return nil
}

// decode converts audioData to interleaved PCM16 per info.Codec,
// returning the sample rate and channel count the caller should use
// downstream (info's for every codec but MP3, whose own header wins).
func decode(info Info, audioData []byte) (samples []int16, sampleRate, channels int, err error) {
	switch info.Codec {
	case codec.PCM16:
		samples, err = codec.DecodePCM16(audioData, nil)
		return samples, info.SampleRateHz, info.NumChannels, err
	case codec.PCM32:
		samples, err = codec.DecodePCM32(audioData, nil)
		return samples, info.SampleRateHz, info.NumChannels, err
	case codec.PCM32F:
		samples, err = codec.DecodePCM32F(audioData, nil)
		return samples, info.SampleRateHz, info.NumChannels, err
	case codec.MP3:
		samples, sampleRate, channels, err = codec.DecodeMP3(audioData)
		return samples, sampleRate, channels, err
	default:
		return nil, 0, 0, audioerr.Wrap(audioerr.ErrInvalidArgument, "unsupported codec")
	}
}
