package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func monoSamples(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestStereoToMono(t *testing.T) {
	t.Parallel()

	// One stereo frame: L=100, R=300 -> 200.
	in := monoSamples(100, 300)
	got := StereoToMono(in)
	want := monoSamples(200)
	if !bytes.Equal(got, want) {
		t.Errorf("StereoToMono = %v, want %v", got, want)
	}
}

func TestStereoToMono_Clamps(t *testing.T) {
	t.Parallel()

	in := monoSamples(32767, 32767)
	got := StereoToMono(in)
	if v := int16(binary.LittleEndian.Uint16(got)); v != 32767 {
		t.Errorf("sample = %d, want clamp at 32767", v)
	}
}

func TestResampleMono16(t *testing.T) {
	t.Parallel()

	t.Run("same rate unchanged", func(t *testing.T) {
		t.Parallel()
		in := monoSamples(1, 2, 3)
		if got := ResampleMono16(in, 16000, 16000); !bytes.Equal(got, in) {
			t.Error("same-rate resample modified data")
		}
	})

	t.Run("downsample halves sample count", func(t *testing.T) {
		t.Parallel()
		in := monoSamples(0, 100, 200, 300)
		got := ResampleMono16(in, 32000, 16000)
		if len(got) != len(in)/2 {
			t.Fatalf("len = %d, want %d", len(got), len(in)/2)
		}
	})

	t.Run("invalid rates passthrough", func(t *testing.T) {
		t.Parallel()
		in := monoSamples(1)
		if got := ResampleMono16(in, 0, 16000); !bytes.Equal(got, in) {
			t.Error("invalid rate should pass input through")
		}
	})
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	target := Format{SampleRate: 16000, Channels: 1}

	t.Run("matching format untouched", func(t *testing.T) {
		t.Parallel()
		in := monoSamples(5, 6)
		if got := Normalize(in, target, target); !bytes.Equal(got, in) {
			t.Error("matching format was modified")
		}
	})

	t.Run("stereo 48k to mono 16k", func(t *testing.T) {
		t.Parallel()
		// 6 stereo frames at 48 kHz -> 2 mono samples at 16 kHz.
		in := make([]byte, 6*4)
		got := Normalize(in, Format{SampleRate: 48000, Channels: 2}, target)
		if len(got) != 2*2 {
			t.Errorf("len = %d, want 4", len(got))
		}
	})
}

func TestEncodeWAV(t *testing.T) {
	t.Parallel()

	pcm := monoSamples(1, 2, 3, 4)
	got := EncodeWAV(pcm, Format{SampleRate: 16000, Channels: 1})

	if len(got) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(got), 44+len(pcm))
	}
	if string(got[0:4]) != "RIFF" || string(got[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if rate := binary.LittleEndian.Uint32(got[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d", rate)
	}
	if size := binary.LittleEndian.Uint32(got[40:44]); size != uint32(len(pcm)) {
		t.Errorf("data size = %d", size)
	}
	if !bytes.Equal(got[44:], pcm) {
		t.Error("payload mismatch")
	}
}

func TestFFmpegConverter_Convert(t *testing.T) {
	t.Parallel()

	t.Run("builds 16k mono args", func(t *testing.T) {
		t.Parallel()
		var gotArgs []string
		c := &FFmpegConverter{
			path:   "/usr/bin/ffmpeg",
			target: Format{SampleRate: 16000, Channels: 1},
			run: func(_ context.Context, _ string, args ...string) error {
				gotArgs = args
				return nil
			},
		}
		if err := c.Convert(context.Background(), "in.mp3", "out.wav"); err != nil {
			t.Fatalf("Convert() unexpected error: %v", err)
		}
		joined := strings.Join(gotArgs, " ")
		for _, want := range []string{"-i in.mp3", "-ar 16000", "-ac 1", "pcm_s16le", "out.wav"} {
			if !strings.Contains(joined, want) {
				t.Errorf("args %q missing %q", joined, want)
			}
		}
	})

	t.Run("wraps failure", func(t *testing.T) {
		t.Parallel()
		c := &FFmpegConverter{
			path:   "/usr/bin/ffmpeg",
			target: Format{SampleRate: 16000, Channels: 1},
			run: func(_ context.Context, _ string, _ ...string) error {
				return errors.New("exit status 1: invalid input")
			},
		}
		err := c.Convert(context.Background(), "bad.mp3", "out.wav")
		if err == nil || !strings.Contains(err.Error(), "audio: convert") {
			t.Fatalf("error = %v", err)
		}
	})
}
