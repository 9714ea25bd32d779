package host

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/viam-modules/system-audio/internal/audioerr"
)

// deviceIndexByName caches the stable ordinal assigned to each device
// name the first time it is seen. PortAudio's DeviceInfo does not
// expose a stable index itself, and the *portaudio.DeviceInfo pointers
// returned by portaudio.Devices() are not guaranteed identical across
// calls, so we key on name instead; device names are unique within one
// host's enumeration.
var (
	deviceIndexMu     sync.Mutex
	deviceIndexByName = map[string]DeviceID{}
	nextDeviceIndex   DeviceID
)

func deviceIndex(d *portaudio.DeviceInfo) DeviceID {
	deviceIndexMu.Lock()
	defer deviceIndexMu.Unlock()
	if id, ok := deviceIndexByName[d.Name]; ok {
		return id
	}
	id := nextDeviceIndex
	deviceIndexByName[d.Name] = id
	nextDeviceIndex++
	return id
}

// PortAudioBinding implements Binding using the real PortAudio library.
type PortAudioBinding struct {
	initialized bool
}

// NewPortAudioBinding creates a new PortAudio-backed binding.
func NewPortAudioBinding() *PortAudioBinding {
	return &PortAudioBinding{}
}

func (p *PortAudioBinding) Initialize() error {
	if p.initialized {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return audioerr.Wrapf(audioerr.ErrHostFailure, err, "portaudio initialize failed")
	}
	p.initialized = true
	return nil
}

func (p *PortAudioBinding) Terminate() error {
	if !p.initialized {
		return nil
	}
	err := portaudio.Terminate()
	p.initialized = false
	if err != nil {
		return audioerr.Wrapf(audioerr.ErrHostFailure, err, "portaudio terminate failed")
	}
	return nil
}

func (p *PortAudioBinding) DefaultInputDevice() (DeviceID, error) {
	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		return NoDevice, audioerr.Wrap(audioerr.ErrNotFound, "no default input device")
	}
	return deviceIDOf(dev), nil
}

func (p *PortAudioBinding) DefaultOutputDevice() (DeviceID, error) {
	dev, err := portaudio.DefaultOutputDevice()
	if err != nil || dev == nil {
		return NoDevice, audioerr.Wrap(audioerr.ErrNotFound, "no default output device")
	}
	return deviceIDOf(dev), nil
}

func (p *PortAudioBinding) DeviceCount() (int, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return 0, audioerr.Wrapf(audioerr.ErrHostFailure, err, "failed to enumerate devices")
	}
	return len(devs), nil
}

func (p *PortAudioBinding) DeviceInfo(id DeviceID) (DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return DeviceInfo{}, audioerr.Wrapf(audioerr.ErrHostFailure, err, "failed to enumerate devices")
	}
	for _, d := range devs {
		if deviceIDOf(d) == id {
			return toDeviceInfo(d), nil
		}
	}
	return DeviceInfo{}, audioerr.Wrap(audioerr.ErrNotFound, fmt.Sprintf("no device with id %d", id))
}

func (p *PortAudioBinding) Devices() ([]DeviceEntry, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, audioerr.Wrapf(audioerr.ErrHostFailure, err, "failed to enumerate devices")
	}
	entries := make([]DeviceEntry, 0, len(devs))
	for _, d := range devs {
		entries = append(entries, DeviceEntry{ID: deviceIDOf(d), Info: toDeviceInfo(d)})
	}
	return entries, nil
}

func (p *PortAudioBinding) IsFormatSupported(input, output *StreamParams, sampleRate float64) error {
	devs, err := portaudio.Devices()
	if err != nil {
		return audioerr.Wrapf(audioerr.ErrHostFailure, err, "failed to enumerate devices")
	}

	var inParams, outParams *portaudio.StreamDeviceParameters
	if input != nil {
		dev, derr := findDevice(devs, input.Device)
		if derr != nil {
			return derr
		}
		inParams = &portaudio.StreamDeviceParameters{Device: dev, Channels: input.Channels, Latency: dev.DefaultLowInputLatency}
	}
	if output != nil {
		dev, derr := findDevice(devs, output.Device)
		if derr != nil {
			return derr
		}
		outParams = &portaudio.StreamDeviceParameters{Device: dev, Channels: output.Channels, Latency: dev.DefaultLowOutputLatency}
	}

	params := portaudio.StreamParameters{SampleRate: sampleRate}
	if inParams != nil {
		params.Input = *inParams
	}
	if outParams != nil {
		params.Output = *outParams
	}

	if err := portaudio.IsFormatSupported(params, nil); err != nil {
		return audioerr.Wrapf(audioerr.ErrFormatUnsupported, err,
			fmt.Sprintf("format not supported: sample_rate=%v input=%+v output=%+v", sampleRate, input, output))
	}
	return nil
}

// portAudioStream adapts *portaudio.Stream to the Stream interface.
type portAudioStream struct {
	stream *portaudio.Stream
}

func (s *portAudioStream) Start() error {
	if err := s.stream.Start(); err != nil {
		return audioerr.Wrapf(audioerr.ErrHostFailure, err, "stream start failed")
	}
	return nil
}

func (s *portAudioStream) Stop() error {
	if err := s.stream.Stop(); err != nil {
		return audioerr.Wrapf(audioerr.ErrHostFailure, err, "stream stop failed")
	}
	return nil
}

func (s *portAudioStream) Close() error {
	if err := s.stream.Close(); err != nil {
		return audioerr.Wrapf(audioerr.ErrHostFailure, err, "stream close failed")
	}
	return nil
}

func (p *PortAudioBinding) OpenStream(params OpenParams) (Stream, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, audioerr.Wrapf(audioerr.ErrHostFailure, err, "failed to enumerate devices")
	}

	var sp portaudio.StreamParameters
	sp.SampleRate = params.SampleRate
	sp.FramesPerBuffer = params.FramesPerBuffer

	if params.Input != nil {
		dev, derr := findDevice(devs, params.Input.Device)
		if derr != nil {
			return nil, derr
		}
		sp.Input = portaudio.StreamDeviceParameters{Device: dev, Channels: params.Input.Channels, Latency: dev.DefaultLowInputLatency}
	}
	if params.Output != nil {
		dev, derr := findDevice(devs, params.Output.Device)
		if derr != nil {
			return nil, derr
		}
		sp.Output = portaudio.StreamDeviceParameters{Device: dev, Channels: params.Output.Channels, Latency: dev.DefaultLowOutputLatency}
	}

	cb := params.Callback

	var paStream *portaudio.Stream
	var streamErr error

	if params.Input != nil && params.Output == nil {
		paStream, streamErr = portaudio.OpenStream(sp, func(in []int16, timeInfo portaudio.StreamCallbackTimeInfo) {
			_ = cb(in, nil, timeInfo.InputBufferAdcTime)
		})
	} else if params.Output != nil && params.Input == nil {
		paStream, streamErr = portaudio.OpenStream(sp, func(out []int16) {
			_ = cb(nil, out, time.Duration(0))
		})
	} else {
		paStream, streamErr = portaudio.OpenStream(sp, func(in, out []int16) {
			_ = cb(in, out, time.Duration(0))
		})
	}

	if streamErr != nil {
		return nil, audioerr.Wrapf(audioerr.ErrHostFailure, streamErr, "failed to open stream")
	}
	return &portAudioStream{stream: paStream}, nil
}

func deviceIDOf(d *portaudio.DeviceInfo) DeviceID {
	return deviceIndex(d)
}

func findDevice(devs []*portaudio.DeviceInfo, id DeviceID) (*portaudio.DeviceInfo, error) {
	for _, d := range devs {
		if deviceIDOf(d) == id {
			return d, nil
		}
	}
	return nil, audioerr.Wrap(audioerr.ErrNotFound, fmt.Sprintf("no device with id %d", id))
}

func toDeviceInfo(d *portaudio.DeviceInfo) DeviceInfo {
	return DeviceInfo{
		Name:                    d.Name,
		MaxInputChannels:        d.MaxInputChannels,
		MaxOutputChannels:       d.MaxOutputChannels,
		DefaultSampleRate:       d.DefaultSampleRate,
		DefaultLowInputLatency:  d.DefaultLowInputLatency,
		DefaultLowOutputLatency: d.DefaultLowOutputLatency,
	}
}
