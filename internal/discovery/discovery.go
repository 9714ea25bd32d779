// Package discovery implements DiscoveryService: one-shot enumeration
// of the host's audio devices into resource-config records ready to
// hand to the resource layer.
package discovery

import (
	"fmt"

	"github.com/viam-modules/system-audio/internal/factory"
	"github.com/viam-modules/system-audio/internal/host"
)

// ResourceConfig is one discovered device's default resource shape.
type ResourceConfig struct {
	Name              string
	DeviceName        string
	DefaultSampleRate int
	MaxChannels       int
	Kind              factory.Kind
}

// Discover enumerates binding's devices and emits one ResourceConfig
// per input-capable device (as a microphone) and per output-capable
// device (as a speaker). Names are assigned "microphone-1",
// "microphone-2", ... and "speaker-1", "speaker-2", ... in enumeration
// order, per direction.
func Discover(binding host.Binding) ([]ResourceConfig, error) {
	devices, err := binding.Devices()
	if err != nil {
		return nil, err
	}

	var configs []ResourceConfig
	micCount, speakerCount := 0, 0

	for _, d := range devices {
		if d.Info.MaxInputChannels > 0 {
			micCount++
			configs = append(configs, ResourceConfig{
				Name:              fmt.Sprintf("microphone-%d", micCount),
				DeviceName:        d.Info.Name,
				DefaultSampleRate: int(d.Info.DefaultSampleRate),
				MaxChannels:       d.Info.MaxInputChannels,
				Kind:              factory.KindMicrophone,
			})
		}
		if d.Info.MaxOutputChannels > 0 {
			speakerCount++
			configs = append(configs, ResourceConfig{
				Name:              fmt.Sprintf("speaker-%d", speakerCount),
				DeviceName:        d.Info.Name,
				DefaultSampleRate: int(d.Info.DefaultSampleRate),
				MaxChannels:       d.Info.MaxOutputChannels,
				Kind:              factory.KindSpeaker,
			})
		}
	}

	return configs, nil
}
