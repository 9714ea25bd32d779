package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viam-modules/system-audio/internal/host"
)

func TestDecodeConfigDefaults(t *testing.T) {
	cfg, err := DecodeConfig(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.NumChannels)
	assert.Equal(t, DefaultHistoricalThrottleMS, cfg.HistoricalThrottleMS)
	assert.Equal(t, DefaultHistorySeconds, cfg.HistorySeconds)
	assert.False(t, cfg.SampleRateSet)
	assert.False(t, cfg.LatencySet)
	assert.False(t, cfg.VolumeSet)
}

func TestDecodeConfigHonoursSuppliedValues(t *testing.T) {
	cfg, err := DecodeConfig(map[string]any{
		"device_name": "studio-mic",
		"sample_rate": 48000,
		"num_channels": 2,
		"latency":     10,
		"volume":      75,
	})
	require.NoError(t, err)
	assert.Equal(t, "studio-mic", cfg.DeviceName)
	assert.Equal(t, 48000, cfg.SampleRate)
	assert.True(t, cfg.SampleRateSet)
	assert.Equal(t, 2, cfg.NumChannels)
	assert.Equal(t, 10, cfg.LatencyMS)
	assert.True(t, cfg.LatencySet)
	assert.Equal(t, 75, cfg.Volume)
	assert.True(t, cfg.VolumeSet)
}

func TestDecodeConfigRejectsWrongType(t *testing.T) {
	_, err := DecodeConfig(map[string]any{"sample_rate": "not-a-number"})
	assert.Error(t, err)
}

func TestUnknownKeys(t *testing.T) {
	unknown := UnknownKeys(map[string]any{"sample_rate": 48000, "frobnicate": true})
	assert.Equal(t, []string{"frobnicate"}, unknown)
}

func newMockFactory(t *testing.T) (*Factory, *host.MockBinding, host.DeviceID) {
	t.Helper()
	m := host.NewMockBinding()
	id := m.AddDevice(host.DeviceInfo{
		Name:                    "fake-mic",
		MaxInputChannels:        2,
		MaxOutputChannels:       2,
		DefaultSampleRate:       48000,
		DefaultLowInputLatency:  20 * time.Millisecond,
		DefaultLowOutputLatency: 20 * time.Millisecond,
	})
	m.SetDefaultInputDevice(id)
	m.SetDefaultOutputDevice(id)
	require.NoError(t, m.Initialize())
	return New(m), m, id
}

func TestOpenMicrophoneResolvesDefaultDevice(t *testing.T) {
	f, _, _ := newMockFactory(t)

	ms, err := f.ReopenMicrophone(nil, Config{NumChannels: 1})
	require.NoError(t, err)
	assert.Equal(t, "fake-mic", ms.DeviceName)
	assert.Equal(t, 48000, ms.SampleRate)
	assert.Equal(t, 1, ms.Channels)
}

func TestOpenMicrophoneRejectsChannelsExceedingDeviceMax(t *testing.T) {
	f, _, _ := newMockFactory(t)

	_, err := f.ReopenMicrophone(nil, Config{NumChannels: 9})
	assert.Error(t, err)
}

func TestOpenMicrophoneRejectsUnknownDeviceName(t *testing.T) {
	f, _, _ := newMockFactory(t)

	_, err := f.ReopenMicrophone(nil, Config{DeviceName: "nonexistent", NumChannels: 1})
	assert.Error(t, err)
}

func TestReopenMicrophoneReplacesOldStream(t *testing.T) {
	f, _, _ := newMockFactory(t)

	first, err := f.ReopenMicrophone(nil, Config{NumChannels: 1})
	require.NoError(t, err)

	second, err := f.ReopenMicrophone(first, Config{NumChannels: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Channels)
	assert.NotSame(t, first.Input, second.Input)
}

func TestOpenSpeakerResolvesDefaultDevice(t *testing.T) {
	f, _, _ := newMockFactory(t)

	ss, err := f.ReopenSpeaker(nil, Config{NumChannels: 1})
	require.NoError(t, err)
	assert.Equal(t, "fake-mic", ss.DeviceName)
	assert.Equal(t, 1, ss.Channels)
}

func TestOpenMicrophoneSurfacesFormatUnsupported(t *testing.T) {
	f, m, _ := newMockFactory(t)
	m.SetFormatUnsupported(true)

	_, err := f.ReopenMicrophone(nil, Config{NumChannels: 1})
	assert.Error(t, err)
}
