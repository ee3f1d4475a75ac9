package dsp

import (
	"fmt"
	"time"
)

// Kind identifies an effect family.
type Kind int

const (
	KindNone Kind = iota
	KindReverb
	KindDistortion
	KindDelay
	KindPitchShift
)

// String returns the bare family name, usable as a metrics label.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindReverb:
		return "reverb"
	case KindDistortion:
		return "distortion"
	case KindDelay:
		return "delay"
	case KindPitchShift:
		return "pitch"
	default:
		return "unknown"
	}
}

// Effect is a tagged effect selection. Only the fields belonging to the
// Kind are meaningful; the engine dispatches on the tag to build the
// corresponding DSP node.
type Effect struct {
	Kind      Kind
	Decay     time.Duration // reverb decay time
	Drive     float64       // distortion drive, 0..1
	DelayTime time.Duration // delay line length
	Feedback  float64       // delay feedback, 0..1
	Semitones int           // pitch shift amount
	Wet       float64       // processed signal mix, 0..1
}

func None() Effect {
	return Effect{Kind: KindNone}
}

func Reverb(decay time.Duration, wet float64) Effect {
	return Effect{Kind: KindReverb, Decay: decay, Wet: wet}
}

func Distortion(drive, wet float64) Effect {
	return Effect{Kind: KindDistortion, Drive: drive, Wet: wet}
}

func Delay(delayTime time.Duration, feedback, wet float64) Effect {
	return Effect{Kind: KindDelay, DelayTime: delayTime, Feedback: feedback, Wet: wet}
}

func PitchShift(semitones int, wet float64) Effect {
	return Effect{Kind: KindPitchShift, Semitones: semitones, Wet: wet}
}

// Preset resolves one of the named recorder effects. These are the fixed
// product presets; arbitrary parameters go through the constructors.
func Preset(name string) (Effect, error) {
	switch name {
	case "", "none":
		return None(), nil
	case "reverb":
		return Reverb(2*time.Second, 0.5), nil
	case "distortion":
		return Distortion(0.5, 0.5), nil
	case "delay":
		return Delay(250*time.Millisecond, 0.5, 0.5), nil
	case "pitch-up":
		return PitchShift(12, 1.0), nil
	case "pitch-down":
		return PitchShift(-12, 1.0), nil
	default:
		return Effect{}, fmt.Errorf("unknown effect: %s", name)
	}
}

// PresetNames lists the named effects in display order.
func PresetNames() []string {
	return []string{"none", "reverb", "distortion", "delay", "pitch-up", "pitch-down"}
}

func (e Effect) String() string {
	switch e.Kind {
	case KindNone:
		return "none"
	case KindReverb:
		return fmt.Sprintf("reverb(decay=%s, wet=%.2f)", e.Decay, e.Wet)
	case KindDistortion:
		return fmt.Sprintf("distortion(drive=%.2f, wet=%.2f)", e.Drive, e.Wet)
	case KindDelay:
		return fmt.Sprintf("delay(time=%s, feedback=%.2f, wet=%.2f)", e.DelayTime, e.Feedback, e.Wet)
	case KindPitchShift:
		return fmt.Sprintf("pitch(semitones=%+d, wet=%.2f)", e.Semitones, e.Wet)
	default:
		return fmt.Sprintf("unknown(%d)", int(e.Kind))
	}
}

// validate rejects parameter combinations no node can be built for.
func (e Effect) validate() error {
	switch e.Kind {
	case KindNone:
		return nil
	case KindReverb:
		if e.Decay <= 0 {
			return fmt.Errorf("reverb decay must be positive, got %s", e.Decay)
		}
	case KindDistortion:
		if e.Drive < 0 || e.Drive > 1 {
			return fmt.Errorf("distortion drive must be in [0, 1], got %.2f", e.Drive)
		}
	case KindDelay:
		if e.DelayTime <= 0 {
			return fmt.Errorf("delay time must be positive, got %s", e.DelayTime)
		}
		if e.Feedback < 0 || e.Feedback >= 1 {
			return fmt.Errorf("delay feedback must be in [0, 1), got %.2f", e.Feedback)
		}
	case KindPitchShift:
		if e.Semitones < -24 || e.Semitones > 24 {
			return fmt.Errorf("pitch shift must be within ±24 semitones, got %d", e.Semitones)
		}
	default:
		return fmt.Errorf("unknown effect kind: %d", int(e.Kind))
	}

	if e.Wet < 0 || e.Wet > 1 {
		return fmt.Errorf("wet mix must be in [0, 1], got %.2f", e.Wet)
	}
	return nil
}
