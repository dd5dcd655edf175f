package pcm_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/glizzus/opus2mp3/internal/pcm"
)

func TestPutSamples(t *testing.T) {
	samples := []int16{0, 1, -1, 0x1234, -32768}
	dst := make([]byte, 16)

	n := pcm.PutSamples(dst, samples)
	if n != 10 {
		t.Fatalf("expected 10 bytes written, got %d", n)
	}

	want := []byte{0x00, 0x00, 0x01, 0x00, 0xff, 0xff, 0x34, 0x12, 0x00, 0x80}
	if diff := cmp.Diff(want, dst[:n]); diff != "" {
		t.Errorf("bytes mismatch (-want +got):\n%s", diff)
	}
}

func TestFrames(t *testing.T) {
	tc := []struct {
		d    time.Duration
		rate int
		want int
	}{
		{d: 100 * time.Millisecond, rate: 48000, want: 4800},
		{d: 20 * time.Millisecond, rate: 48000, want: 960},
		{d: time.Second, rate: 44100, want: 44100},
		{d: 0, rate: 48000, want: 0},
	}

	for _, test := range tc {
		t.Run(test.d.String(), func(t *testing.T) {
			if got := pcm.Frames(test.d, test.rate); got != test.want {
				t.Errorf("Frames(%v, %d) = %d; want %d", test.d, test.rate, got, test.want)
			}
		})
	}
}

func TestSineTone(t *testing.T) {
	samples := pcm.SineTone(100*time.Millisecond, 440, 1000, 48000, 2)

	if len(samples) != 4800*2 {
		t.Fatalf("expected %d samples, got %d", 4800*2, len(samples))
	}
	if samples[0] != 0 {
		t.Errorf("expected tone to start at zero, got %d", samples[0])
	}

	var peak int16
	for i := 0; i < len(samples); i += 2 {
		if samples[i] != samples[i+1] {
			t.Fatalf("channels differ at frame %d: %d != %d", i/2, samples[i], samples[i+1])
		}
		peak = max(peak, samples[i])
	}
	if peak < 990 || peak > 1000 {
		t.Errorf("expected peak near 1000, got %d", peak)
	}
}
