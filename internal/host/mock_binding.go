package host

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// MockBinding implements Binding without touching real hardware. It is
// grounded on the teacher's MockAudioBackend: callers can inject
// errors into Initialize, OpenStream and IsFormatSupported, substitute
// a synthetic input generator,
// and inspect what was captured or played back after the fact.
type MockBinding struct {
	mu sync.Mutex

	initialized bool
	devices     []DeviceEntry
	defaultIn   DeviceID
	defaultOut  DeviceID

	initErr            error
	terminateErr       error
	openStreamErr      error
	formatUnsupported  bool

	inputGenerator func(buf []int16)

	captured [][]int16
	played   [][]int16

	streams []*mockStream
}

// NewMockBinding creates a mock binding with no devices registered.
// Use AddDevice to populate the device table before tests exercise
// device resolution.
func NewMockBinding() *MockBinding {
	return &MockBinding{
		defaultIn:  NoDevice,
		defaultOut: NoDevice,
	}
}

// AddDevice registers a device and returns the ID assigned to it.
func (m *MockBinding) AddDevice(info DeviceInfo) DeviceID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := DeviceID(len(m.devices))
	m.devices = append(m.devices, DeviceEntry{ID: id, Info: info})
	return id
}

// SetDefaultInputDevice designates id as the default input device.
func (m *MockBinding) SetDefaultInputDevice(id DeviceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultIn = id
}

// SetDefaultOutputDevice designates id as the default output device.
func (m *MockBinding) SetDefaultOutputDevice(id DeviceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultOut = id
}

// SetInitError configures Initialize to fail with err.
func (m *MockBinding) SetInitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initErr = err
}

// SetOpenStreamError configures OpenStream to fail with err.
func (m *MockBinding) SetOpenStreamError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openStreamErr = err
}

// SetFormatUnsupported makes IsFormatSupported always reject.
func (m *MockBinding) SetFormatUnsupported(unsupported bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.formatUnsupported = unsupported
}

// SetInputGenerator overrides how synthetic capture buffers are
// filled. The default generates a 440Hz sine wave.
func (m *MockBinding) SetInputGenerator(gen func(buf []int16)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputGenerator = gen
}

// CapturedBuffers returns every buffer an input stream's callback
// produced, in order.
func (m *MockBinding) CapturedBuffers() [][]int16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]int16, len(m.captured))
	copy(out, m.captured)
	return out
}

// PlayedBuffers returns every buffer an output stream's callback
// filled, in order.
func (m *MockBinding) PlayedBuffers() [][]int16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]int16, len(m.played))
	copy(out, m.played)
	return out
}

func (m *MockBinding) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initErr != nil {
		return m.initErr
	}
	m.initialized = true
	return nil
}

func (m *MockBinding) Terminate() error {
	m.mu.Lock()
	streams := append([]*mockStream(nil), m.streams...)
	m.mu.Unlock()

	if m.terminateErr != nil {
		return m.terminateErr
	}

	for _, s := range streams {
		_ = s.Stop()
		_ = s.Close()
	}

	m.mu.Lock()
	m.initialized = false
	m.mu.Unlock()
	return nil
}

func (m *MockBinding) DefaultInputDevice() (DeviceID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.defaultIn == NoDevice {
		return NoDevice, fmt.Errorf("mock: no default input device configured")
	}
	return m.defaultIn, nil
}

func (m *MockBinding) DefaultOutputDevice() (DeviceID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.defaultOut == NoDevice {
		return NoDevice, fmt.Errorf("mock: no default output device configured")
	}
	return m.defaultOut, nil
}

func (m *MockBinding) DeviceCount() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.devices), nil
}

func (m *MockBinding) DeviceInfo(id DeviceID) (DeviceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devices {
		if d.ID == id {
			return d.Info, nil
		}
	}
	return DeviceInfo{}, fmt.Errorf("mock: no device with id %d", id)
}

func (m *MockBinding) Devices() ([]DeviceEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DeviceEntry, len(m.devices))
	copy(out, m.devices)
	return out, nil
}

func (m *MockBinding) IsFormatSupported(input, output *StreamParams, sampleRate float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.formatUnsupported {
		return fmt.Errorf("mock: format not supported: sample_rate=%v input=%+v output=%+v", sampleRate, input, output)
	}
	return nil
}

func (m *MockBinding) OpenStream(params OpenParams) (Stream, error) {
	m.mu.Lock()
	if m.openStreamErr != nil {
		err := m.openStreamErr
		m.mu.Unlock()
		return nil, err
	}
	gen := m.inputGenerator
	m.mu.Unlock()

	framesPerBuffer := params.FramesPerBuffer
	if framesPerBuffer <= 0 {
		framesPerBuffer = 512
	}

	s := &mockStream{
		binding:         m,
		params:          params,
		framesPerBuffer: framesPerBuffer,
		generator:       gen,
		stopCh:          make(chan struct{}),
	}

	m.mu.Lock()
	m.streams = append(m.streams, s)
	m.mu.Unlock()

	return s, nil
}

// mockStream drives params.Callback on a ticker sized to approximate
// real-time pacing, the way the teacher's MockStream.simulateAudioInput
// does for its own callback-less Read/Write API.
type mockStream struct {
	mu sync.Mutex

	binding         *MockBinding
	params          OpenParams
	framesPerBuffer int
	generator       func(buf []int16)

	active bool
	opened bool
	stopCh chan struct{}

	startErr error
	stopErr  error
	closeErr error
}

func (s *mockStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.startErr != nil {
		return s.startErr
	}
	if s.active {
		return fmt.Errorf("mock: stream already active")
	}

	s.active = true
	s.opened = true
	go s.run()
	return nil
}

func (s *mockStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopErr != nil {
		return s.stopErr
	}
	if !s.active {
		return nil
	}
	s.active = false
	close(s.stopCh)
	s.stopCh = make(chan struct{})
	return nil
}

func (s *mockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeErr != nil {
		return s.closeErr
	}
	s.opened = false
	return nil
}

func (s *mockStream) run() {
	sampleRate := s.params.SampleRate
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	period := time.Duration(float64(s.framesPerBuffer) / sampleRate * float64(time.Second))
	if period <= 0 {
		period = time.Millisecond
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	started := time.Now()

	for {
		s.mu.Lock()
		stopCh := s.stopCh
		s.mu.Unlock()

		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.tick(started)
		}
	}
}

func (s *mockStream) tick(started time.Time) {
	adcTime := time.Since(started)

	var in, out []int16
	if s.params.Input != nil {
		in = make([]int16, s.framesPerBuffer*s.params.Input.Channels)
		if s.generator != nil {
			s.generator(in)
		} else {
			defaultSineGenerator(in)
		}
		s.binding.mu.Lock()
		captured := append([]int16(nil), in...)
		s.binding.captured = append(s.binding.captured, captured)
		s.binding.mu.Unlock()
	}
	if s.params.Output != nil {
		out = make([]int16, s.framesPerBuffer*s.params.Output.Channels)
	}

	if s.params.Callback != nil {
		_ = s.params.Callback(in, out, adcTime)
	}

	if s.params.Output != nil {
		s.binding.mu.Lock()
		played := append([]int16(nil), out...)
		s.binding.played = append(s.binding.played, played)
		s.binding.mu.Unlock()
	}
}

func defaultSineGenerator(buf []int16) {
	const freq = 440.0
	for i := range buf {
		t := float64(i) / 48000.0
		buf[i] = int16(0.1 * 32767 * math.Sin(2*math.Pi*freq*t))
	}
}
