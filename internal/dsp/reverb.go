package dsp

import (
	"math"
)

// Comb and allpass delay lengths from the classic Schroeder/Freeverb
// topology, tuned at 44100 Hz and rescaled to the render rate.
var (
	combTunings    = []int{1116, 1188, 1277, 1356}
	allpassTunings = []int{556, 441}
)

const (
	reverbDamping   = 0.2
	allpassFeedback = 0.5
	referenceRate   = 44100.0
)

// reverbNode is a parallel comb bank into a series allpass chain, one
// instance per channel.
type reverbNode struct {
	effect Effect
	combs  []*combFilter
	allpss []*allpassFilter
}

func newReverbNode(e Effect, sampleRate int) *reverbNode {
	scale := float64(sampleRate) / referenceRate
	decaySamples := e.Decay.Seconds() * float64(sampleRate)

	n := &reverbNode{effect: e}
	for _, tuning := range combTunings {
		size := int(float64(tuning) * scale)
		if size < 1 {
			size = 1
		}
		// RT60 feedback: the comb loop loses 60 dB over the decay time.
		feedback := math.Pow(10, -3*float64(size)/decaySamples)
		n.combs = append(n.combs, &combFilter{
			buf:      make([]float64, size),
			feedback: feedback,
			damping:  reverbDamping,
		})
	}
	for _, tuning := range allpassTunings {
		size := int(float64(tuning) * scale)
		if size < 1 {
			size = 1
		}
		n.allpss = append(n.allpss, &allpassFilter{
			buf:      make([]float64, size),
			feedback: allpassFeedback,
		})
	}
	return n
}

func (n *reverbNode) process(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		var wet float64
		for _, c := range n.combs {
			wet += c.tick(x)
		}
		wet /= float64(len(n.combs))
		for _, a := range n.allpss {
			wet = a.tick(wet)
		}
		out[i] = wet
	}
	return mix(in, out, n.effect.Wet)
}

// combFilter is a feedback comb with one-pole damping in the loop.
type combFilter struct {
	buf      []float64
	pos      int
	feedback float64
	damping  float64
	store    float64
}

func (c *combFilter) tick(x float64) float64 {
	y := c.buf[c.pos]
	c.store = y*(1-c.damping) + c.store*c.damping
	c.buf[c.pos] = x + c.store*c.feedback
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return y
}

type allpassFilter struct {
	buf      []float64
	pos      int
	feedback float64
}

func (a *allpassFilter) tick(x float64) float64 {
	buffered := a.buf[a.pos]
	y := buffered - x
	a.buf[a.pos] = x + buffered*a.feedback
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return y
}
