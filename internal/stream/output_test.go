package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputPullDrainsAndAdvancesCursor(t *testing.T) {
	out, err := NewOutput(44100, 1, 1)
	require.NoError(t, err)

	out.WriteSamples([]int16{10, 20, 30})

	dst := make([]int16, 5)
	n := out.Pull(dst)

	assert.Equal(t, 3, n)
	assert.Equal(t, []int16{10, 20, 30, 0, 0}, dst, "shortfall is filled with silence")
	assert.EqualValues(t, 3, out.PlaybackCursor())
}

func TestOutputPullWithNothingBufferedIsAllSilence(t *testing.T) {
	out, err := NewOutput(44100, 1, 1)
	require.NoError(t, err)

	dst := make([]int16, 4)
	n := out.Pull(dst)

	assert.Equal(t, 0, n)
	assert.Equal(t, []int16{0, 0, 0, 0}, dst)
	assert.EqualValues(t, 0, out.PlaybackCursor())
}

func TestOutputPullAdvancesCursorMonotonically(t *testing.T) {
	out, err := NewOutput(44100, 1, 1)
	require.NoError(t, err)

	out.WriteSamples([]int16{1, 2, 3, 4, 5, 6})

	dst := make([]int16, 3)
	out.Pull(dst)
	assert.EqualValues(t, 3, out.PlaybackCursor())
	out.Pull(dst)
	assert.EqualValues(t, 6, out.PlaybackCursor())
}
