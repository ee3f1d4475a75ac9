package dsp

import (
	"math"
)

const (
	grainSize = 4096 // samples per grain
	grainHop  = grainSize / 2
)

// pitchShiftNode shifts pitch without changing duration using granular
// resampling: overlapping Hann-windowed grains are read from the input at
// the grain's own position but resampled by the pitch ratio, then
// overlap-added at the original positions.
type pitchShiftNode struct {
	effect Effect
	ratio  float64
	window []float64
}

func newPitchShiftNode(e Effect, sampleRate int) *pitchShiftNode {
	window := make([]float64, grainSize)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(grainSize)))
	}

	return &pitchShiftNode{
		effect: e,
		ratio:  math.Pow(2, float64(e.Semitones)/12),
		window: window,
	}
}

func (n *pitchShiftNode) process(in []float64) []float64 {
	out := make([]float64, len(in))
	weight := make([]float64, len(in))

	for start := 0; start < len(in); start += grainHop {
		for i := 0; i < grainSize; i++ {
			dst := start + i
			if dst >= len(in) {
				break
			}
			src := float64(start) + float64(i)*n.ratio
			w := n.window[i]
			out[dst] += w * sampleAt(in, src)
			weight[dst] += w
		}
	}

	// Normalize by the accumulated window weight so grain overlap does not
	// modulate the amplitude, including at the buffer edges.
	for i := range out {
		if weight[i] > 1e-9 {
			out[i] /= weight[i]
		}
	}

	return mix(in, out, n.effect.Wet)
}

// sampleAt reads the input at a fractional position with linear
// interpolation, returning silence outside the buffer.
func sampleAt(in []float64, pos float64) float64 {
	if pos < 0 || pos >= float64(len(in)) {
		return 0
	}
	i := int(pos)
	frac := pos - float64(i)
	if i+1 >= len(in) {
		return in[i]
	}
	return in[i]*(1-frac) + in[i+1]*frac
}
