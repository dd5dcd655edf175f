// Package transcode converts Opus-in-Ogg audio to MP3.
//
// Two interchangeable strategies implement Converter: Streaming decodes and
// re-encodes in memory, Staged hands the work to an external transcoder
// through files in a staging directory. Service sits in front of either one
// and handles the base64 text contract.
package transcode

import (
	"context"
	"fmt"

	"github.com/glizzus/opus2mp3/internal/opus"
	"github.com/glizzus/opus2mp3/internal/pcm"
)

// Converter turns an Opus-in-Ogg payload into an MP3 payload.
type Converter interface {
	Convert(ctx context.Context, opus []byte) ([]byte, error)
}

const (
	StrategyStreaming = "streaming"
	StrategyStaged    = "staged"
)

// Options fixes the audio format of a conversion.
type Options struct {
	SampleRate  int
	Channels    int
	BitrateKbps int
}

// DefaultOptions is 48kHz stereo in, 128kbps MP3 out.
func DefaultOptions() Options {
	return Options{
		SampleRate:  pcm.SampleRate,
		Channels:    pcm.Channels,
		BitrateKbps: 128,
	}
}

// PCMBufferSize is the byte size of the largest decoded Opus packet for o.
func (o Options) PCMBufferSize() int {
	return opus.MaxFrameSize * o.Channels * pcm.BytesPerSample
}

func (o Options) bitrateArg() string {
	return fmt.Sprintf("%dk", o.BitrateKbps)
}
