// Package resample converts interleaved PCM16 audio between sample
// rates. The conversion is one-shot: callers hand over a complete
// buffer and get a complete, exactly-sized result back, rather than
// streaming through a ring the way a playback-time decoder would.
package resample

import (
	"fmt"
)

// Resample converts in (interleaved PCM16 at inRate) to outRate,
// preserving channel count. The output length is
// round(inFrames * outRate / inRate) frames, each of `channels`
// samples.
//
// Interpolation is 4-tap cubic (see cubicInterpolate), the same shape used for
// streaming resamplers: edge frames are duplicated where the window
// runs off either end of the input so the first and last output
// frames are still well defined.
func Resample(inRate, outRate, channels int, in []int16) ([]int16, error) {
	if inRate <= 0 || outRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("resample: invalid input: inRate=%d outRate=%d channels=%d", inRate, outRate, channels)
	}
	if len(in)%channels != 0 {
		return nil, fmt.Errorf("resample: input length %d not a multiple of channel count %d", len(in), channels)
	}
	inFrames := len(in) / channels
	if inFrames == 0 {
		return nil, nil
	}
	if inRate == outRate {
		out := make([]int16, len(in))
		copy(out, in)
		return out, nil
	}

	ratio := float64(inRate) / float64(outRate)
	outFrames := int(roundHalfAwayFromZero(float64(inFrames) * float64(outRate) / float64(inRate)))
	if outFrames <= 0 {
		return nil, nil
	}

	out := make([]int16, outFrames*channels)

	frame := func(i int) int {
		if i < 0 {
			i = 0
		}
		if i >= inFrames {
			i = inFrames - 1
		}
		return i
	}

	pos := 0.0
	for f := 0; f < outFrames; f++ {
		base := int(pos)
		alpha := pos - float64(base)

		i0, i1, i2, i3 := frame(base-1), frame(base), frame(base+1), frame(base+2)

		for c := 0; c < channels; c++ {
			y0 := float64(in[i0*channels+c])
			y1 := float64(in[i1*channels+c])
			y2 := float64(in[i2*channels+c])
			y3 := float64(in[i3*channels+c])

			v := cubicInterpolate(y0, y1, y2, y3, alpha)
			out[f*channels+c] = clampInt16(v)
		}

		pos += ratio
	}

	return out, nil
}

// cubicInterpolate evaluates, at alpha in [0,1), the cubic through y1
// (alpha=0) and y2 (alpha=1) whose other coefficients come from the
// neighboring points y0/y3. Its slope at y1 is y2-y0 (not the halved
// Catmull-Rom tangent).
func cubicInterpolate(y0, y1, y2, y3, alpha float64) float64 {
	a0 := y3 - y2 - y0 + y1
	a1 := y0 - y1 - a0
	a2 := y2 - y0
	a3 := y1

	return a0*alpha*alpha*alpha + a1*alpha*alpha + a2*alpha + a3
}

func clampInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func roundHalfAwayFromZero(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}
	return float64(int64(v - 0.5))
}
