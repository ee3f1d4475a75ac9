package dsp

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxdroplab/voxdrop/internal/audio"
)

func toneBuffer(t *testing.T, channels, frames, rate int) *audio.Buffer {
	t.Helper()
	buf, err := audio.NewBuffer(channels, frames, rate)
	require.NoError(t, err)
	for ch := 0; ch < channels; ch++ {
		for i := range buf.Samples[ch] {
			buf.Samples[ch][i] = 0.6 * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
		}
	}
	return buf
}

func TestNoneIsIdentity(t *testing.T) {
	buf := toneBuffer(t, 1, 4096, 44100)

	out, err := Apply(context.Background(), buf, None())
	require.NoError(t, err)
	assert.Same(t, buf, out, "none effect should return the input buffer itself")
}

func TestRenderIsDeterministic(t *testing.T) {
	for _, name := range PresetNames() {
		effect, err := Preset(name)
		require.NoError(t, err)

		buf := toneBuffer(t, 2, 8192, 44100)

		first, err := Apply(context.Background(), buf.Clone(), effect)
		require.NoError(t, err, "effect %s", name)
		second, err := Apply(context.Background(), buf.Clone(), effect)
		require.NoError(t, err, "effect %s", name)

		for ch := 0; ch < first.Channels(); ch++ {
			assert.Equal(t, first.Samples[ch], second.Samples[ch],
				"effect %s channel %d not bit-identical across renders", name, ch)
		}
	}
}

func TestRenderPreservesShape(t *testing.T) {
	buf := toneBuffer(t, 2, 10000, 48000)

	for _, name := range []string{"reverb", "distortion", "delay", "pitch-up", "pitch-down"} {
		effect, err := Preset(name)
		require.NoError(t, err)

		out, err := Apply(context.Background(), buf, effect)
		require.NoError(t, err, "effect %s", name)
		require.NotSame(t, buf, out, "effect %s should render into a new buffer", name)

		assert.Equal(t, buf.Channels(), out.Channels())
		assert.Equal(t, buf.Frames(), out.Frames())
		assert.Equal(t, buf.SampleRate, out.SampleRate)
	}
}

func TestEffectsChangeTheSignal(t *testing.T) {
	buf := toneBuffer(t, 1, 8192, 44100)

	for _, name := range []string{"reverb", "distortion", "delay", "pitch-up", "pitch-down"} {
		effect, err := Preset(name)
		require.NoError(t, err)

		out, err := Apply(context.Background(), buf, effect)
		require.NoError(t, err)

		assert.NotEqual(t, buf.Samples[0], out.Samples[0], "effect %s left the signal untouched", name)
	}
}

func TestPresetParameters(t *testing.T) {
	reverb, err := Preset("reverb")
	require.NoError(t, err)
	assert.Equal(t, KindReverb, reverb.Kind)
	assert.Equal(t, 2*time.Second, reverb.Decay)
	assert.Equal(t, 0.5, reverb.Wet)

	distortion, err := Preset("distortion")
	require.NoError(t, err)
	assert.Equal(t, 0.5, distortion.Drive)
	assert.Equal(t, 0.5, distortion.Wet)

	delay, err := Preset("delay")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, delay.DelayTime)
	assert.Equal(t, 0.5, delay.Feedback)
	assert.Equal(t, 0.5, delay.Wet)

	up, err := Preset("pitch-up")
	require.NoError(t, err)
	assert.Equal(t, 12, up.Semitones)
	assert.Equal(t, 1.0, up.Wet)

	down, err := Preset("pitch-down")
	require.NoError(t, err)
	assert.Equal(t, -12, down.Semitones)
	assert.Equal(t, 1.0, down.Wet)

	none, err := Preset("")
	require.NoError(t, err)
	assert.Equal(t, KindNone, none.Kind)

	_, err = Preset("chorus")
	assert.Error(t, err)
}

func TestOfflineContextRendersOnce(t *testing.T) {
	buf := toneBuffer(t, 1, 2048, 44100)

	oc, err := NewOfflineContext(buf)
	require.NoError(t, err)
	require.NoError(t, oc.Attach(Distortion(0.5, 0.5)))

	_, err = oc.Render(context.Background())
	require.NoError(t, err)

	_, err = oc.Render(context.Background())
	assert.Error(t, err, "a context must not render twice")
}

func TestAttachRejectsInvalidEffect(t *testing.T) {
	buf := toneBuffer(t, 1, 128, 44100)
	oc, err := NewOfflineContext(buf)
	require.NoError(t, err)

	assert.Error(t, oc.Attach(Reverb(0, 0.5)), "zero decay")
	assert.Error(t, oc.Attach(Distortion(1.5, 0.5)), "drive out of range")
	assert.Error(t, oc.Attach(Delay(time.Second, 1.0, 0.5)), "feedback of 1 never decays")
	assert.Error(t, oc.Attach(PitchShift(48, 1.0)), "semitones out of range")
	assert.Error(t, oc.Attach(Effect{Kind: KindDelay, DelayTime: time.Second, Wet: 2}), "wet out of range")
}

func TestRenderHonorsCancellation(t *testing.T) {
	buf := toneBuffer(t, 2, 4096, 44100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Apply(ctx, buf, Distortion(0.5, 0.5))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDistortionStaysBounded(t *testing.T) {
	buf := toneBuffer(t, 1, 4096, 44100)

	out, err := Apply(context.Background(), buf, Distortion(1.0, 1.0))
	require.NoError(t, err)

	for i, s := range out.Samples[0] {
		if s > 1.0 || s < -1.0 {
			t.Fatalf("soft clipper produced out-of-range sample %v at %d", s, i)
		}
	}
}
