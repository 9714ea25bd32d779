// Package resource composes StreamFactory, HostBinding, and the
// capture/playback services into the §6 Resource API: validate,
// get_properties, get_audio/play, do_command, reconfigure. A
// Microphone and a Speaker each own a state mutex guarding their live
// (factory.*Stream) pair, so a reconfigure can swap it out from under
// in-flight readers/writers per §5's switchover semantics.
package resource

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/viam-modules/system-audio/internal/audioerr"
	"github.com/viam-modules/system-audio/internal/capture"
	"github.com/viam-modules/system-audio/internal/codec"
	"github.com/viam-modules/system-audio/internal/factory"
	"github.com/viam-modules/system-audio/internal/stream"
	"github.com/viam-modules/system-audio/internal/validate"
)

// Properties is get_properties()'s result.
type Properties struct {
	SupportedCodecs []codec.Tag
	SampleRateHz    int
	NumChannels     int
}

var supportedCodecs = []codec.Tag{codec.PCM16, codec.PCM32, codec.PCM32F, codec.MP3}

// Microphone is the resource wrapper around a live MicrophoneStream.
// Its zero value is not usable; construct with NewMicrophone.
type Microphone struct {
	factory *factory.Factory

	mu      sync.RWMutex
	current *factory.MicrophoneStream

	// activeStreams is the advisory (counted-but-not-gated) in-flight
	// get_audio counter: reconfigure logs a warning when it's nonzero
	// but never blocks on it, per §4.8/§9.
	activeStreams atomic.Int64
}

// NewMicrophone opens cfg against binding's factory and returns a
// running Microphone resource.
func NewMicrophone(f *factory.Factory, cfg factory.Config) (*Microphone, error) {
	m := &Microphone{factory: f}
	current, err := f.ReopenMicrophone(nil, cfg)
	if err != nil {
		return nil, err
	}
	m.current = current
	return m, nil
}

// Current implements capture.Source: the live input stream
// get_audio's capture loop reads from.
func (m *Microphone) Current() *stream.Input {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	return m.current.Input
}

// HistoricalThrottleMS implements capture.Source.
func (m *Microphone) HistoricalThrottleMS() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.HistoricalThrottleMS
}

// GetProperties implements get_properties().
func (m *Microphone) GetProperties() Properties {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Properties{
		SupportedCodecs: supportedCodecs,
		SampleRateHz:    m.current.SampleRate,
		NumChannels:     m.current.Channels,
	}
}

// Validate implements validate(config) for a microphone resource.
func (m *Microphone) Validate(attrs map[string]any) ([]string, error) {
	return validate.Validate(attrs, factory.KindMicrophone)
}

// GetAudio implements microphone.get_audio: streams codec-encoded
// chunks to handler until it returns false, durationSeconds elapses,
// or an error terminates the call. The active-stream counter is
// incremented on entry and decremented on every exit path under the
// resource's state lock; multiple calls may run concurrently, each
// with its own read position.
func (m *Microphone) GetAudio(codecTag codec.Tag, durationSeconds float64, previousTimestampNs int64, handler capture.Handler) error {
	m.mu.Lock()
	m.activeStreams.Add(1)
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.activeStreams.Add(-1)
		m.mu.Unlock()
	}()

	return capture.GetAudio(m, codecTag, durationSeconds, previousTimestampNs, handler)
}

// Reconfigure implements reconfigure(deps, config): it builds and
// starts the new stream first, and only swaps it in under the state
// lock once that succeeds, per §4.7's restart semantics. Readers
// bound to the old stream keep draining it until they next check
// Current().
func (m *Microphone) Reconfigure(cfg factory.Config) error {
	if n := m.activeStreams.Load(); n > 0 {
		log.Printf("⚠️  reconfiguring microphone with %d active get_audio stream(s) still bound to the old buffer", n)
	}

	m.mu.Lock()
	old := m.current
	m.mu.Unlock()

	next, err := m.factory.ReopenMicrophone(old, cfg)
	if err != nil {
		return audioerr.Wrapf(audioerr.ErrHostFailure, err, "microphone reconfigure failed")
	}

	m.mu.Lock()
	m.current = next
	m.mu.Unlock()
	return nil
}

// Close stops and releases the microphone's host stream.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.HostStream == nil {
		return nil
	}
	if err := m.current.HostStream.Stop(); err != nil {
		return audioerr.Wrapf(audioerr.ErrHostFailure, err, "failed to stop microphone stream")
	}
	return m.current.HostStream.Close()
}
