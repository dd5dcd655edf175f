// Package pcm holds helpers for interleaved signed 16-bit PCM audio.
package pcm

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	SampleRate     = 48000
	Channels       = 2
	BitDepth       = 16
	BytesPerSample = BitDepth / 8
)

// PutSamples writes samples into dst as little-endian 16-bit values and
// returns the number of bytes written. dst must hold len(samples)*2 bytes.
func PutSamples(dst []byte, samples []int16) int {
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dst[i*BytesPerSample:], uint16(s))
	}
	return len(samples) * BytesPerSample
}

// Frames converts a duration to a sample count per channel.
func Frames(d time.Duration, sampleRate int) int {
	return int(int64(d) * int64(sampleRate) / int64(time.Second))
}

// SineTone generates a sine wave at freq Hz, written identically to every
// channel.
func SineTone(d time.Duration, freq float64, amplitude int16, sampleRate, channels int) []int16 {
	n := Frames(d, sampleRate)
	samples := make([]int16, n*channels)
	for i := range n {
		v := int16(math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)) * float64(amplitude))
		for c := range channels {
			samples[i*channels+c] = v
		}
	}
	return samples
}
