package volume

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFakeAmixer(t *testing.T, fn func(args ...string) error) {
	t.Helper()
	orig := amixerRunner
	amixerRunner = fn
	t.Cleanup(func() { amixerRunner = orig })
}

func TestSetRejectsOutOfRangePercent(t *testing.T) {
	assert.Error(t, Set(-1))
	assert.Error(t, Set(101))
}

func TestSetTriesElementsInOrderUntilOneSucceeds(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("mixer element fallback only runs on linux")
	}

	var tried []string
	withFakeAmixer(t, func(args ...string) error {
		tried = append(tried, args[1])
		if args[1] == "Master" {
			return nil
		}
		return errors.New("no such element")
	})

	require.NoError(t, Set(50))
	assert.Equal(t, []string{"PCM", "Master"}, tried)
}

func TestSetFailsWhenNoElementAccepts(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("mixer element fallback only runs on linux")
	}

	withFakeAmixer(t, func(args ...string) error {
		return errors.New("no such element")
	})

	err := Set(50)
	assert.Error(t, err)
}
