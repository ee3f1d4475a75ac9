package dsp

import (
	"context"
	"fmt"

	"github.com/voxdroplab/voxdrop/internal/audio"
)

// node is a single-effect processor. Each channel is processed with
// independent, freshly initialized state so renders are reproducible.
type node interface {
	process(in []float64) []float64
}

// OfflineContext is a non-realtime render graph sized exactly to its source
// buffer: same channel count, frame count and sample rate. One effect node
// is attached, rendering is triggered once, and the result is a fully
// rendered buffer. No realtime scheduling is involved, so a given source
// and effect always produce bit-identical output.
type OfflineContext struct {
	source   *audio.Buffer
	effect   Effect
	rendered bool
}

// NewOfflineContext builds a render context around the source buffer.
func NewOfflineContext(src *audio.Buffer) (*OfflineContext, error) {
	if src == nil {
		return nil, fmt.Errorf("offline context requires a source buffer")
	}
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source buffer: %w", err)
	}

	return &OfflineContext{source: src, effect: None()}, nil
}

// Attach connects the effect node between the source and the render target.
func (c *OfflineContext) Attach(e Effect) error {
	if err := e.validate(); err != nil {
		return fmt.Errorf("cannot attach effect: %w", err)
	}
	c.effect = e
	return nil
}

// Render runs the graph to completion and returns the rendered buffer.
// It may be called once per context. Samples are not clamped here: an
// aggressive effect can push values outside [-1, 1] and they stay that way
// until PCM encoding quantizes them.
func (c *OfflineContext) Render(ctx context.Context) (*audio.Buffer, error) {
	if c.rendered {
		return nil, fmt.Errorf("offline context has already rendered")
	}
	c.rendered = true

	out, err := audio.NewBuffer(c.source.Channels(), c.source.Frames(), c.source.SampleRate)
	if err != nil {
		return nil, err
	}

	for ch := 0; ch < c.source.Channels(); ch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := buildNode(c.effect, c.source.SampleRate)
		if err != nil {
			return nil, err
		}
		copy(out.Samples[ch], n.process(c.source.Samples[ch]))
	}

	return out, nil
}

// Apply renders buf through the effect in an offline context. The none
// effect is the identity and returns the input buffer itself, no copy.
func Apply(ctx context.Context, buf *audio.Buffer, e Effect) (*audio.Buffer, error) {
	if e.Kind == KindNone {
		return buf, nil
	}

	oc, err := NewOfflineContext(buf)
	if err != nil {
		return nil, err
	}
	if err := oc.Attach(e); err != nil {
		return nil, err
	}
	return oc.Render(ctx)
}

// buildNode constructs the DSP node for an effect at the given sample rate.
func buildNode(e Effect, sampleRate int) (node, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	switch e.Kind {
	case KindNone:
		return identityNode{}, nil
	case KindReverb:
		return newReverbNode(e, sampleRate), nil
	case KindDistortion:
		return newDistortionNode(e), nil
	case KindDelay:
		return newDelayNode(e, sampleRate), nil
	case KindPitchShift:
		return newPitchShiftNode(e, sampleRate), nil
	default:
		return nil, fmt.Errorf("unknown effect kind: %d", int(e.Kind))
	}
}

type identityNode struct{}

func (identityNode) process(in []float64) []float64 {
	return in
}

// mix blends the dry input with the processed signal in place on wet.
func mix(dry, wet []float64, wetAmount float64) []float64 {
	for i := range wet {
		wet[i] = dry[i]*(1-wetAmount) + wet[i]*wetAmount
	}
	return wet
}
