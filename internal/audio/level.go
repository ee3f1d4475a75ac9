package audio

import (
	"encoding/binary"
)

// LevelPCM16 computes the instantaneous level of a chunk of interleaved
// s16le samples, scaled to 0..255 for UI metering.
func LevelPCM16(chunk []byte) int {
	peak := 0
	for i := 0; i+1 < len(chunk); i += 2 {
		v := int(int16(binary.LittleEndian.Uint16(chunk[i:])))
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}

	level := peak / 128
	if level > 255 {
		level = 255
	}
	return level
}

// WaveformPCM16 reduces interleaved s16le samples to per-bucket peak values
// in 0..255, used for waveform previews. Returns nil when buckets <= 0 or
// there is no audio.
func WaveformPCM16(raw []byte, channels, buckets int) []int {
	if buckets <= 0 || channels <= 0 {
		return nil
	}
	frames := len(raw) / (channels * 2)
	if frames == 0 {
		return nil
	}

	peaks := make([]int, buckets)
	framesPerBucket := frames / buckets
	if framesPerBucket == 0 {
		framesPerBucket = 1
	}

	for frame := 0; frame < frames; frame++ {
		bucket := frame / framesPerBucket
		if bucket >= buckets {
			bucket = buckets - 1
		}
		base := frame * channels * 2
		for ch := 0; ch < channels; ch++ {
			v := int(int16(binary.LittleEndian.Uint16(raw[base+ch*2:])))
			if v < 0 {
				v = -v
			}
			if v/128 > peaks[bucket] {
				peaks[bucket] = v / 128
			}
		}
	}

	for i, p := range peaks {
		if p > 255 {
			peaks[i] = 255
		}
	}
	return peaks
}
