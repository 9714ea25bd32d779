// Package host defines HostBinding, the seam between the audio core
// and the underlying audio driver. The real implementation wraps
// PortAudio; a mock implementation lets the rest of the core be tested
// without real hardware.
package host

import "time"

// DeviceID identifies a device as reported by the host.
type DeviceID int

// NoDevice is returned by DefaultInputDevice/DefaultOutputDevice when
// the host has no default device for that direction.
const NoDevice DeviceID = -1

// DeviceInfo describes one device as reported by the host.
type DeviceInfo struct {
	Name                   string
	MaxInputChannels       int
	MaxOutputChannels      int
	DefaultSampleRate      float64
	DefaultLowInputLatency time.Duration
	DefaultLowOutputLatency time.Duration
}

// DeviceEntry pairs a device's id with its info, as returned by
// Devices() for the linear scan StreamFactory's device resolution
// performs.
type DeviceEntry struct {
	ID   DeviceID
	Info DeviceInfo
}

// Direction is the stream direction: input (microphone) or output
// (speaker).
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

// StreamParams describes one direction's side of a stream open call.
type StreamParams struct {
	Device   DeviceID
	Channels int
}

// Callback is invoked by the real-time producer/consumer thread. For
// an input stream, in carries the captured samples and out is nil.
// For an output stream, out must be filled and in is nil. adcTime is
// the host-reported device time of the first sample in this callback.
// Returning an error aborts the stream.
type Callback func(in, out []int16, adcTime time.Duration) error

// OpenParams bundles everything needed to open a stream.
type OpenParams struct {
	Input            *StreamParams // nil for an output-only stream
	Output           *StreamParams // nil for an input-only stream
	SampleRate       float64
	FramesPerBuffer  int // 0 asks the host to pick
	Callback         Callback
}

// Stream is a handle to an open host stream.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Binding is the trait the rest of the core consumes. A single
// concrete implementation wraps the platform audio host; a mock
// implementation substitutes for it in tests.
type Binding interface {
	Initialize() error
	Terminate() error

	DefaultInputDevice() (DeviceID, error)
	DefaultOutputDevice() (DeviceID, error)
	DeviceCount() (int, error)
	DeviceInfo(id DeviceID) (DeviceInfo, error)
	Devices() ([]DeviceEntry, error)

	IsFormatSupported(input, output *StreamParams, sampleRate float64) error

	OpenStream(params OpenParams) (Stream, error)
}
