package audio

import (
	"encoding/binary"
	"testing"
)

func pcmChunk(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestLevelPCM16(t *testing.T) {
	tests := []struct {
		name  string
		chunk []byte
		want  int
	}{
		{"silence", pcmChunk(0, 0, 0, 0), 0},
		{"positive peak", pcmChunk(0, 12800, 640), 100},
		{"negative peak", pcmChunk(-12800, 640), 100},
		{"full scale capped", pcmChunk(-32768, 32767), 255},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		if got := LevelPCM16(tt.chunk); got != tt.want {
			t.Errorf("%s: LevelPCM16 = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestWaveformPCM16(t *testing.T) {
	// 4 frames into 2 buckets: peaks per bucket
	raw := pcmChunk(1280, 2560, 640, 12800)
	peaks := WaveformPCM16(raw, 1, 2)
	if len(peaks) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(peaks))
	}
	if peaks[0] != 20 || peaks[1] != 100 {
		t.Errorf("unexpected peaks: %v", peaks)
	}

	if WaveformPCM16(nil, 1, 4) != nil {
		t.Error("expected nil waveform for empty audio")
	}
	if WaveformPCM16(raw, 1, 0) != nil {
		t.Error("expected nil waveform for zero buckets")
	}
}
