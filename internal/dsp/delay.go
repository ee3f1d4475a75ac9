package dsp

// delayNode is a feedback delay line: each echo is fed back into the line
// attenuated by the feedback amount.
type delayNode struct {
	effect Effect
	line   []float64
	pos    int
}

func newDelayNode(e Effect, sampleRate int) *delayNode {
	size := int(e.DelayTime.Seconds() * float64(sampleRate))
	if size < 1 {
		size = 1
	}
	return &delayNode{
		effect: e,
		line:   make([]float64, size),
	}
}

func (n *delayNode) process(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		delayed := n.line[n.pos]
		n.line[n.pos] = x + delayed*n.effect.Feedback
		n.pos++
		if n.pos >= len(n.line) {
			n.pos = 0
		}
		out[i] = delayed
	}
	return mix(in, out, n.effect.Wet)
}
