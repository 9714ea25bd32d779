package factory

import (
	"fmt"
	"time"

	"github.com/viam-modules/system-audio/internal/audioerr"
	"github.com/viam-modules/system-audio/internal/host"
	"github.com/viam-modules/system-audio/internal/stream"
)

// Factory resolves configuration into open, running host streams
// backed by a ring buffer, against an injectable host.Binding.
type Factory struct {
	Binding host.Binding
}

// New constructs a Factory over binding.
func New(binding host.Binding) *Factory {
	return &Factory{Binding: binding}
}

// MicrophoneStream is a resolved, open input stream: the live ring
// buffer the capture service reads from and the host handle that
// drives it.
type MicrophoneStream struct {
	Input      *stream.Input
	HostStream host.Stream

	DeviceName           string
	SampleRate           int
	Channels             int
	LatencySeconds       float64
	HistoricalThrottleMS int
}

// SpeakerStream is a resolved, open output stream: the live ring
// buffer the playback service writes into and the host handle that
// drains it.
type SpeakerStream struct {
	Output     *stream.Output
	HostStream host.Stream

	DeviceName     string
	SampleRate     int
	Channels       int
	LatencySeconds float64
}

func (f *Factory) resolveDevice(deviceName string, dir host.Direction) (host.DeviceID, host.DeviceInfo, error) {
	if deviceName == "" {
		var id host.DeviceID
		var err error
		if dir == host.DirectionInput {
			id, err = f.Binding.DefaultInputDevice()
		} else {
			id, err = f.Binding.DefaultOutputDevice()
		}
		if err != nil {
			return host.NoDevice, host.DeviceInfo{}, audioerr.Wrapf(audioerr.ErrNotFound, err, "no default device available")
		}
		info, err := f.Binding.DeviceInfo(id)
		if err != nil {
			return host.NoDevice, host.DeviceInfo{}, err
		}
		return id, info, nil
	}

	entries, err := f.Binding.Devices()
	if err != nil {
		return host.NoDevice, host.DeviceInfo{}, err
	}
	for _, e := range entries {
		if e.Info.Name == deviceName {
			return e.ID, e.Info, nil
		}
	}
	return host.NoDevice, host.DeviceInfo{}, audioerr.Wrap(audioerr.ErrNotFound, fmt.Sprintf("no device named %q", deviceName))
}

func historySecondsOf(cfg Config) int {
	if cfg.HistorySeconds <= 0 {
		return DefaultHistorySeconds
	}
	return cfg.HistorySeconds
}

// openMicrophone resolves cfg to a device and constructs the ring
// buffer and host stream, without starting it.
func (f *Factory) openMicrophone(cfg Config) (*MicrophoneStream, error) {
	id, info, err := f.resolveDevice(cfg.DeviceName, host.DirectionInput)
	if err != nil {
		return nil, err
	}

	sampleRate := cfg.SampleRate
	if !cfg.SampleRateSet || sampleRate <= 0 {
		sampleRate = int(info.DefaultSampleRate)
	}

	channels := cfg.NumChannels
	if channels <= 0 {
		channels = 1
	}
	if channels > info.MaxInputChannels {
		return nil, audioerr.Wrap(audioerr.ErrInvalidArgument,
			fmt.Sprintf("requested %d input channels exceeds device %q's max of %d", channels, info.Name, info.MaxInputChannels))
	}

	latencySeconds := float64(cfg.LatencyMS) / 1000.0
	if !cfg.LatencySet {
		latencySeconds = info.DefaultLowInputLatency.Seconds()
	}

	sp := &host.StreamParams{Device: id, Channels: channels}
	if err := f.Binding.IsFormatSupported(sp, nil, float64(sampleRate)); err != nil {
		return nil, audioerr.Wrapf(audioerr.ErrFormatUnsupported, err,
			fmt.Sprintf("format not supported: device=%q sample_rate=%d channels=%d", info.Name, sampleRate, channels))
	}

	in, err := stream.NewInput(sampleRate, channels, historySecondsOf(cfg))
	if err != nil {
		return nil, audioerr.Wrapf(audioerr.ErrInvalidArgument, err, "failed to construct input buffer")
	}

	throttle := cfg.HistoricalThrottleMS
	if throttle <= 0 {
		throttle = DefaultHistoricalThrottleMS
	}

	ms := &MicrophoneStream{
		Input:                in,
		DeviceName:           info.Name,
		SampleRate:           sampleRate,
		Channels:             channels,
		LatencySeconds:       latencySeconds,
		HistoricalThrottleMS: throttle,
	}

	hostStream, err := f.Binding.OpenStream(host.OpenParams{
		Input:      sp,
		SampleRate: float64(sampleRate),
		Callback: func(inSamples, _ []int16, adcTime time.Duration) error {
			in.AnchorFirstCallback(time.Now(), adcTime)
			in.WriteSamples(inSamples)
			return nil
		},
	})
	if err != nil {
		return nil, audioerr.Wrapf(audioerr.ErrHostFailure, err, "failed to open input stream")
	}
	ms.HostStream = hostStream
	return ms, nil
}

// openSpeaker resolves cfg to a device and constructs the ring buffer
// and host stream, without starting it.
func (f *Factory) openSpeaker(cfg Config) (*SpeakerStream, error) {
	id, info, err := f.resolveDevice(cfg.DeviceName, host.DirectionOutput)
	if err != nil {
		return nil, err
	}

	sampleRate := cfg.SampleRate
	if !cfg.SampleRateSet || sampleRate <= 0 {
		sampleRate = int(info.DefaultSampleRate)
	}

	channels := cfg.NumChannels
	if channels <= 0 {
		channels = 1
	}
	if channels > info.MaxOutputChannels {
		return nil, audioerr.Wrap(audioerr.ErrInvalidArgument,
			fmt.Sprintf("requested %d output channels exceeds device %q's max of %d", channels, info.Name, info.MaxOutputChannels))
	}

	latencySeconds := float64(cfg.LatencyMS) / 1000.0
	if !cfg.LatencySet {
		latencySeconds = info.DefaultLowOutputLatency.Seconds()
	}

	sp := &host.StreamParams{Device: id, Channels: channels}
	if err := f.Binding.IsFormatSupported(nil, sp, float64(sampleRate)); err != nil {
		return nil, audioerr.Wrapf(audioerr.ErrFormatUnsupported, err,
			fmt.Sprintf("format not supported: device=%q sample_rate=%d channels=%d", info.Name, sampleRate, channels))
	}

	out, err := stream.NewOutput(sampleRate, channels, historySecondsOf(cfg))
	if err != nil {
		return nil, audioerr.Wrapf(audioerr.ErrInvalidArgument, err, "failed to construct output buffer")
	}

	ss := &SpeakerStream{
		Output:         out,
		DeviceName:     info.Name,
		SampleRate:     sampleRate,
		Channels:       channels,
		LatencySeconds: latencySeconds,
	}

	hostStream, err := f.Binding.OpenStream(host.OpenParams{
		Output:     sp,
		SampleRate: float64(sampleRate),
		Callback: func(_, outBuf []int16, _ time.Duration) error {
			out.Pull(outBuf)
			return nil
		},
	})
	if err != nil {
		return nil, audioerr.Wrapf(audioerr.ErrHostFailure, err, "failed to open output stream")
	}
	ss.HostStream = hostStream
	return ss, nil
}

// ReopenMicrophone implements §4.7's restart semantics: if old is
// non-nil its host stream is stopped and closed first, then a new
// stream is opened and started. On start failure the new stream is
// closed and the error returned; old is never re-used either way, so
// callers swap (stream, buffer) only once this returns successfully.
func (f *Factory) ReopenMicrophone(old *MicrophoneStream, cfg Config) (*MicrophoneStream, error) {
	if old != nil && old.HostStream != nil {
		_ = old.HostStream.Stop()
		_ = old.HostStream.Close()
	}

	ms, err := f.openMicrophone(cfg)
	if err != nil {
		return nil, err
	}
	if err := ms.HostStream.Start(); err != nil {
		_ = ms.HostStream.Close()
		return nil, audioerr.Wrapf(audioerr.ErrHostFailure, err, "failed to start input stream")
	}
	return ms, nil
}

// ReopenSpeaker is ReopenMicrophone's counterpart for output streams.
func (f *Factory) ReopenSpeaker(old *SpeakerStream, cfg Config) (*SpeakerStream, error) {
	if old != nil && old.HostStream != nil {
		_ = old.HostStream.Stop()
		_ = old.HostStream.Close()
	}

	ss, err := f.openSpeaker(cfg)
	if err != nil {
		return nil, err
	}
	if err := ss.HostStream.Start(); err != nil {
		_ = ss.HostStream.Close()
		return nil, audioerr.Wrapf(audioerr.ErrHostFailure, err, "failed to start output stream")
	}
	return ss, nil
}
