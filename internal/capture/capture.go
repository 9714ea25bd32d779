// Package capture implements CaptureService: reading from a live
// InputStreamContext, encoding chunks via the codec registry, and
// delivering them to a caller-supplied handler until the handler
// stops the stream, a duration limit elapses, or an error occurs.
package capture

import (
	"fmt"
	"math"
	"time"

	"github.com/viam-modules/system-audio/internal/audioerr"
	"github.com/viam-modules/system-audio/internal/codec"
	"github.com/viam-modules/system-audio/internal/stream"
)

const (
	pcmChunkSeconds = 0.1
	mp3ChunkSeconds = 0.15
	pollInterval    = 10 * time.Millisecond
)

// sleep is a variable so tests can make the starved/throttle paths
// deterministic without actually sleeping wall-clock time.
var sleep = time.Sleep

// Chunk is one delivered, codec-encoded span of captured audio.
type Chunk struct {
	AudioData        []byte
	Codec            codec.Tag
	SampleRateHz     int
	NumChannels      int
	SequenceNumber   uint64
	StartTimestampNs int64
	EndTimestampNs   int64
}

// Handler receives one chunk and reports whether the caller wants
// more. Returning false stops the stream (mirrors a remote client
// disconnecting).
type Handler func(Chunk) bool

// Source supplies the capture loop with the resource's current live
// input stream and throttle setting. Both may change mid-call if the
// resource is reconfigured; Current() returning a different pointer
// than the one the loop is bound to is how a reconfigure is detected.
type Source interface {
	Current() *stream.Input
	HistoricalThrottleMS() int
}

// GetAudio streams codec-encoded chunks from src to handler until
// handler returns false, durationSeconds elapses (0 means unbounded),
// or an error terminates the call. previousTimestampNs of 0 starts
// from "now"; otherwise capture resumes from that point in history,
// subject to §4.8's bounds checks.
func GetAudio(src Source, codecTag codec.Tag, durationSeconds float64, previousTimestampNs int64, handler Handler) error {
	in := src.Current()
	if in == nil {
		return audioerr.Wrap(audioerr.ErrInvalidArgument, "no live input stream bound")
	}

	readPos, err := initialReadPosition(in, previousTimestampNs)
	if err != nil {
		return err
	}

	samplesPerChunk, mp3Enc, err := newChunkPlan(codecTag, in.SampleRate, in.Channels)
	if err != nil {
		return err
	}
	defer func() {
		if mp3Enc != nil {
			_ = mp3Enc.Cleanup()
		}
	}()

	buf := make([]int16, samplesPerChunk)

	var sequenceNumber uint64
	var durationActive bool
	var firstChunkStartNs int64
	var lastChunkEndSample uint64
	endedByDuration := false

	for {
		if current := src.Current(); current != in {
			if mp3Enc != nil {
				_ = mp3Enc.Cleanup()
			}
			in = current
			samplesPerChunk, mp3Enc, err = newChunkPlan(codecTag, in.SampleRate, in.Channels)
			if err != nil {
				return err
			}
			buf = make([]int16, samplesPerChunk)
			readPos = in.WritePosition()
		}

		available := in.WritePosition() - readPos
		if available < uint64(samplesPerChunk) {
			sleep(pollInterval)
			continue
		}

		chunkStartSample := readPos
		n := in.ReadSamples(buf, &readPos)
		if n == 0 {
			sleep(pollInterval)
			continue
		}
		samples := buf[:n]
		chunkEndSample := chunkStartSample + uint64(n)
		lastChunkEndSample = chunkEndSample

		encoded, err := encodeChunk(codecTag, mp3Enc, samples)
		if err != nil {
			return err
		}

		startSample, endSample := chunkStartSample, chunkEndSample
		if mp3Enc != nil {
			shift := uint64(mp3Enc.EncoderDelay) * uint64(in.Channels)
			startSample = shiftEarlier(startSample, shift)
			endSample = shiftEarlier(endSample, shift)
		}
		startTs := in.Timestamp(startSample).UnixNano()
		endTs := in.Timestamp(endSample).UnixNano()

		chunk := Chunk{
			AudioData:        encoded,
			Codec:            codecTag,
			SampleRateHz:     in.SampleRate,
			NumChannels:      in.Channels,
			SequenceNumber:   sequenceNumber,
			StartTimestampNs: startTs,
			EndTimestampNs:   endTs,
		}
		sequenceNumber++

		stop := false
		if durationSeconds > 0 {
			if !durationActive {
				firstChunkStartNs = startTs
				durationActive = true
			}
			elapsed := endTs - firstChunkStartNs
			if elapsed >= int64(durationSeconds*1e9) {
				stop = true
				endedByDuration = true
			}
		}

		cont := handler(chunk)
		if !cont {
			endedByDuration = false
			break
		}
		if stop {
			break
		}

		if previousTimestampNs != 0 && in.WritePosition()-readPos > uint64(in.SampleRate*in.Channels) {
			sleep(time.Duration(src.HistoricalThrottleMS()) * time.Millisecond)
		}
	}

	if endedByDuration && mp3Enc != nil {
		flushed, ferr := mp3Enc.Flush(nil)
		if ferr != nil {
			return ferr
		}
		if len(flushed) > 0 {
			shift := uint64(mp3Enc.EncoderDelay) * uint64(in.Channels)
			startTs := in.Timestamp(lastChunkEndSample).UnixNano()
			endTs := in.Timestamp(lastChunkEndSample + shift).UnixNano()
			handler(Chunk{
				AudioData:        flushed,
				Codec:            codecTag,
				SampleRateHz:     in.SampleRate,
				NumChannels:      in.Channels,
				SequenceNumber:   sequenceNumber,
				StartTimestampNs: startTs,
				EndTimestampNs:   endTs,
			})
		}
	}

	return nil
}

// shiftEarlier moves sample index idx earlier by shift, clamped to 0.
func shiftEarlier(idx, shift uint64) uint64 {
	if shift > idx {
		return 0
	}
	return idx - shift
}

// initialReadPosition resolves previousTimestampNs to a read position
// against in, per §4.8's pure initial-position rule.
func initialReadPosition(in *stream.Input, previousTimestampNs int64) (uint64, error) {
	if previousTimestampNs == 0 {
		return in.WritePosition(), nil
	}
	if previousTimestampNs < 0 {
		return 0, audioerr.Wrap(audioerr.ErrInvalidArgument, "previous_timestamp_ns must be non-negative")
	}

	ts := time.Unix(0, previousTimestampNs)
	if ts.Before(in.StreamStartWall()) {
		return 0, audioerr.Wrap(audioerr.ErrInvalidArgument, "previous_timestamp_ns is before stream start")
	}

	s := in.SampleIndex(ts)
	if s < 0 {
		return 0, audioerr.Wrap(audioerr.ErrInvalidArgument, "previous_timestamp_ns is before stream start")
	}

	readPos := uint64(s) + 1
	wp := in.WritePosition()
	if readPos > wp {
		return 0, audioerr.Wrap(audioerr.ErrInvalidArgument, "previous_timestamp_ns is in the future")
	}
	if wp-readPos > in.Capacity() {
		return 0, audioerr.Wrap(audioerr.ErrInvalidArgument, "previous_timestamp_ns has been overwritten")
	}
	return readPos, nil
}

// newChunkPlan computes samples_per_chunk for codecTag and, for MP3,
// initialises the stateful encoder the chunk size depends on.
func newChunkPlan(tag codec.Tag, sampleRate, channels int) (samplesPerChunk int, enc *codec.Encoder, err error) {
	switch tag {
	case codec.MP3:
		enc = &codec.Encoder{}
		if err := enc.Initialise(sampleRate, channels); err != nil {
			return 0, nil, err
		}
		target := float64(sampleRate) * mp3ChunkSeconds
		frames := int(math.Round(target / float64(enc.FrameSize)))
		if frames < 1 {
			frames = 1
		}
		samplesPerChunk = frames * enc.FrameSize * channels
	default:
		samplesPerChunk = int(math.Round(float64(sampleRate)*pcmChunkSeconds)) * channels
	}

	if samplesPerChunk <= 0 {
		return 0, nil, audioerr.Wrap(audioerr.ErrInvalidArgument, "samples per chunk must be positive")
	}
	return samplesPerChunk, enc, nil
}

func encodeChunk(tag codec.Tag, enc *codec.Encoder, samples []int16) ([]byte, error) {
	switch tag {
	case codec.PCM16:
		return codec.EncodePCM16(samples, nil), nil
	case codec.PCM32:
		return codec.EncodePCM32(samples, nil), nil
	case codec.PCM32F:
		return codec.EncodePCM32F(samples, nil), nil
	case codec.MP3:
		return enc.Encode(samples, nil)
	default:
		return nil, audioerr.Wrap(audioerr.ErrInvalidArgument, fmt.Sprintf("unsupported codec %q", tag))
	}
}
