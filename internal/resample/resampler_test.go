package resample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResampleValidatesArguments(t *testing.T) {
	_, err := Resample(0, 44100, 1, []int16{1, 2, 3})
	require.Error(t, err)

	_, err = Resample(44100, 44100, 0, []int16{1, 2, 3})
	require.Error(t, err)

	_, err = Resample(44100, 48000, 2, []int16{1, 2, 3})
	require.Error(t, err, "length not a multiple of channels")
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	in := []int16{10, -10, 20, -20, 30, -30}
	out, err := Resample(44100, 44100, 2, in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestResampleOutputLengthMatchesRatio(t *testing.T) {
	in := make([]int16, 4410) // 4410 mono frames at 44100 Hz = 0.1s
	for i := range in {
		in[i] = int16(i % 100)
	}
	out, err := Resample(44100, 16000, 1, in)
	require.NoError(t, err)

	expectedFrames := int(float64(len(in)) * 16000 / 44100)
	assert.InDelta(t, expectedFrames, len(out), 1)
}

func TestResampleUpsampleDoublesFrameCount(t *testing.T) {
	in := []int16{0, 1000, 2000, 1000, 0, -1000, -2000, -1000}
	out, err := Resample(8000, 16000, 1, in)
	require.NoError(t, err)
	assert.InDelta(t, len(in)*2, len(out), 1)
}

func TestResampleEmptyInput(t *testing.T) {
	out, err := Resample(44100, 16000, 1, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}
