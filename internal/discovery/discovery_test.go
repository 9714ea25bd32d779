package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viam-modules/system-audio/internal/factory"
	"github.com/viam-modules/system-audio/internal/host"
)

func TestDiscoverAssignsPerDirectionCounters(t *testing.T) {
	b := host.NewMockBinding()
	b.AddDevice(host.DeviceInfo{Name: "usb-mic", MaxInputChannels: 1, DefaultSampleRate: 48000})
	b.AddDevice(host.DeviceInfo{Name: "usb-headset", MaxInputChannels: 1, MaxOutputChannels: 2, DefaultSampleRate: 44100})
	b.AddDevice(host.DeviceInfo{Name: "hdmi-out", MaxOutputChannels: 2, DefaultSampleRate: 48000})

	configs, err := Discover(b)
	require.NoError(t, err)
	require.Len(t, configs, 4)

	assert.Equal(t, "microphone-1", configs[0].Name)
	assert.Equal(t, "usb-mic", configs[0].DeviceName)
	assert.Equal(t, factory.KindMicrophone, configs[0].Kind)

	assert.Equal(t, "microphone-2", configs[1].Name)
	assert.Equal(t, "usb-headset", configs[1].DeviceName)

	assert.Equal(t, "speaker-1", configs[2].Name)
	assert.Equal(t, "usb-headset", configs[2].DeviceName)

	assert.Equal(t, "speaker-2", configs[3].Name)
	assert.Equal(t, "hdmi-out", configs[3].DeviceName)
}

func TestDiscoverIgnoresDevicesWithNoChannelsEitherDirection(t *testing.T) {
	b := host.NewMockBinding()
	b.AddDevice(host.DeviceInfo{Name: "silent", MaxInputChannels: 0, MaxOutputChannels: 0})

	configs, err := Discover(b)
	require.NoError(t, err)
	assert.Empty(t, configs)
}

func TestDiscoverEmptyHostYieldsEmptyList(t *testing.T) {
	b := host.NewMockBinding()
	configs, err := Discover(b)
	require.NoError(t, err)
	assert.Empty(t, configs)
}
