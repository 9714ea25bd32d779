package resource

import (
	"sync"

	"github.com/viam-modules/system-audio/internal/audioerr"
	"github.com/viam-modules/system-audio/internal/factory"
	"github.com/viam-modules/system-audio/internal/playback"
	"github.com/viam-modules/system-audio/internal/stream"
	"github.com/viam-modules/system-audio/internal/validate"
	"github.com/viam-modules/system-audio/internal/volume"
)

// Speaker is the resource wrapper around a live SpeakerStream. Its
// zero value is not usable; construct with NewSpeaker.
type Speaker struct {
	factory *factory.Factory

	mu      sync.RWMutex
	current *factory.SpeakerStream
	cfg     factory.Config // last applied config, so volume survives reconfigure

	// playMu serialises Play so one speaker never interleaves two
	// decoded streams; it is distinct from mu, which only ever guards
	// the (stream, cfg) pair.
	playMu sync.Mutex
}

// NewSpeaker opens cfg against binding's factory and returns a running
// Speaker resource with cfg.Volume applied.
func NewSpeaker(f *factory.Factory, cfg factory.Config) (*Speaker, error) {
	s := &Speaker{factory: f}
	current, err := f.ReopenSpeaker(nil, cfg)
	if err != nil {
		return nil, err
	}
	s.current = current
	s.cfg = cfg
	if cfg.VolumeSet {
		if err := volume.Set(cfg.Volume); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Current implements playback.Source: the live output stream Play
// writes into and waits on.
func (s *Speaker) Current() *stream.Output {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	return s.current.Output
}

// LatencySeconds implements playback.Source.
func (s *Speaker) LatencySeconds() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.LatencySeconds
}

// GetProperties implements get_properties().
func (s *Speaker) GetProperties() Properties {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Properties{
		SupportedCodecs: supportedCodecs,
		SampleRateHz:    s.current.SampleRate,
		NumChannels:     s.current.Channels,
	}
}

// Validate implements validate(config) for a speaker resource.
func (s *Speaker) Validate(attrs map[string]any) ([]string, error) {
	return validate.Validate(attrs, factory.KindSpeaker)
}

// Play implements speaker.play: the playback lock serialises
// concurrent callers so one speaker never interleaves two decoded
// streams.
func (s *Speaker) Play(audioData []byte, info playback.Info) error {
	s.playMu.Lock()
	defer s.playMu.Unlock()
	return playback.Play(s, audioData, info)
}

// SetVolume implements do_command({"set_volume": percent}), applying
// percent immediately and persisting it so a later reconfigure
// re-applies it automatically (§9 ADDED note).
func (s *Speaker) SetVolume(percent int) (int, error) {
	if err := volume.Set(percent); err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.cfg.Volume = percent
	s.cfg.VolumeSet = true
	s.mu.Unlock()
	return percent, nil
}

// Reconfigure implements reconfigure(deps, config): builds and starts
// the new stream first, swaps it in under the state lock once that
// succeeds, then re-applies the last configured volume (explicit
// do_command calls after a prior reconfigure always win, since cfg.Volume
// tracks the most recently applied value either way).
func (s *Speaker) Reconfigure(cfg factory.Config) error {
	s.mu.Lock()
	old := s.current
	s.mu.Unlock()

	next, err := s.factory.ReopenSpeaker(old, cfg)
	if err != nil {
		return audioerr.Wrapf(audioerr.ErrHostFailure, err, "speaker reconfigure failed")
	}

	s.mu.Lock()
	if !cfg.VolumeSet && s.cfg.VolumeSet {
		cfg.Volume = s.cfg.Volume
		cfg.VolumeSet = true
	}
	s.current = next
	s.cfg = cfg
	s.mu.Unlock()

	if cfg.VolumeSet {
		return volume.Set(cfg.Volume)
	}
	return nil
}

// Close stops and releases the speaker's host stream.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.HostStream == nil {
		return nil
	}
	if err := s.current.HostStream.Stop(); err != nil {
		return audioerr.Wrapf(audioerr.ErrHostFailure, err, "failed to stop speaker stream")
	}
	return s.current.HostStream.Close()
}
