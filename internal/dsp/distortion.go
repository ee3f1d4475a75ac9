package dsp

import (
	"math"
)

// distortionNode is a stateless waveshaper. The curve is a soft clip whose
// steepness grows with drive; output is intentionally not clamped.
type distortionNode struct {
	effect Effect
	k      float64
}

func newDistortionNode(e Effect) *distortionNode {
	return &distortionNode{
		effect: e,
		k:      e.Drive * 20,
	}
}

func (n *distortionNode) process(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = n.shape(x)
	}
	return mix(in, out, n.effect.Wet)
}

func (n *distortionNode) shape(x float64) float64 {
	if n.k == 0 {
		return x
	}
	return (1 + n.k) * x / (1 + n.k*math.Abs(x))
}
