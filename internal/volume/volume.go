// Package volume implements the single platform-mixer operation the
// core needs: "set this device's playback gain to percent P". On
// Linux it shells out to amixer; everywhere else it logs and no-ops,
// exactly as §4.9's do_command("set_volume") contract describes.
package volume

import (
	"bytes"
	"fmt"
	"log"
	"os/exec"
	"runtime"

	"github.com/viam-modules/system-audio/internal/audioerr"
)

// preferredMixerElements is tried in order; the first one amixer
// accepts wins. Most consumer hardware exposes "PCM" or "Master"; a
// few USB devices only expose "Speaker".
var preferredMixerElements = []string{"PCM", "Master", "Speaker"}

// amixerRunner is a variable so tests can substitute a fake instead of
// shelling out to the real amixer binary.
var amixerRunner = func(args ...string) error {
	cmd := exec.Command("amixer", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, stderr.String())
	}
	return nil
}

// Set applies percent (0..100) as the device's playback gain. On
// Linux it tries each preferred mixer element in turn via amixer,
// stopping at the first one that succeeds; on every other platform it
// logs and returns nil, matching the spec's "other platforms are
// no-ops".
func Set(percent int) error {
	if percent < 0 || percent > 100 {
		return audioerr.Wrap(audioerr.ErrInvalidArgument, fmt.Sprintf("volume must be in [0,100], got %d", percent))
	}

	if runtime.GOOS != "linux" {
		log.Printf("volume: set_volume(%d) ignored on %s", percent, runtime.GOOS)
		return nil
	}

	var lastErr error
	for _, element := range preferredMixerElements {
		if err := amixerRunner("sset", element, fmt.Sprintf("%d%%", percent)); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return audioerr.Wrapf(audioerr.ErrHostFailure, lastErr, "no mixer element accepted set_volume")
}
