package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesArguments(t *testing.T) {
	t.Run("zero_sample_rate", func(t *testing.T) {
		_, err := New(0, 1, 1)
		require.Error(t, err)
	})
	t.Run("negative_channels", func(t *testing.T) {
		_, err := New(44100, -1, 1)
		require.Error(t, err)
	})
	t.Run("zero_history", func(t *testing.T) {
		_, err := New(44100, 1, 0)
		require.Error(t, err)
	})
	t.Run("valid", func(t *testing.T) {
		b, err := New(44100, 2, 1)
		require.NoError(t, err)
		assert.EqualValues(t, 44100*2, b.Capacity())
	})
}

// S1 — write/read identity.
func TestWriteReadIdentity(t *testing.T) {
	b, err := New(44100, 1, 1)
	require.NoError(t, err)

	for _, s := range []int16{100, 200, 300, 400, 500} {
		b.WriteSample(s)
	}

	out := make([]int16, 5)
	var pos uint64
	n := b.ReadSamples(out, &pos)

	assert.Equal(t, 5, n)
	assert.EqualValues(t, 5, pos)
	assert.Equal(t, []int16{100, 200, 300, 400, 500}, out)
}

// S2 — partial reads.
func TestPartialReads(t *testing.T) {
	b, err := New(44100, 1, 1)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		b.WriteSample(int16(i))
	}

	out := make([]int16, 50)
	var pos uint64

	n := b.ReadSamples(out, &pos)
	assert.Equal(t, 50, n)
	assert.EqualValues(t, 50, pos)

	n = b.ReadSamples(out, &pos)
	assert.Equal(t, 50, n)
	assert.EqualValues(t, 100, pos)
}

// S3 — future read.
func TestFutureReadReturnsZero(t *testing.T) {
	b, err := New(44100, 1, 1)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		b.WriteSample(int16(i))
	}

	out := make([]int16, 100)
	pos := uint64(100)
	n := b.ReadSamples(out, &pos)

	assert.Equal(t, 0, n)
	assert.EqualValues(t, 100, pos)
}

func TestReadMoreThanAvailableReturnsOnlyAvailable(t *testing.T) {
	b, err := New(44100, 1, 1)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		b.WriteSample(int16(i))
	}

	out := make([]int16, 100)
	var pos uint64
	n := b.ReadSamples(out, &pos)

	assert.Equal(t, 10, n)
	assert.EqualValues(t, 10, pos)
}

func TestOverrunAdvancesReadPosToOldestAvailable(t *testing.T) {
	b, err := New(10, 1, 1) // capacity 10
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		b.WriteSample(int16(i))
	}

	out := make([]int16, 5)
	pos := uint64(0) // far behind: write position is 25, capacity 10
	n := b.ReadSamples(out, &pos)

	require.Equal(t, 5, n)
	// oldest available sample is at write_position - capacity = 15
	assert.EqualValues(t, 20, pos)
	assert.Equal(t, []int16{15, 16, 17, 18, 19}, out)
}

func TestWritePositionMonotonic(t *testing.T) {
	b, err := New(44100, 1, 1)
	require.NoError(t, err)

	assert.EqualValues(t, 0, b.WritePosition())
	b.WriteSample(1)
	assert.EqualValues(t, 1, b.WritePosition())
	b.WriteSamples([]int16{2, 3, 4})
	assert.EqualValues(t, 4, b.WritePosition())
}

func TestClearResetsState(t *testing.T) {
	b, err := New(44100, 1, 1)
	require.NoError(t, err)

	b.WriteSamples([]int16{1, 2, 3})
	b.Clear()

	assert.EqualValues(t, 0, b.WritePosition())
	out := make([]int16, 1)
	var pos uint64
	n := b.ReadSamples(out, &pos)
	assert.Equal(t, 0, n)
}
