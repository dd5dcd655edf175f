// Package mp3 encodes PCM to MP3 and inspects MP3 bitstreams.
package mp3

import (
	"fmt"
	"io"

	lame "github.com/viert/go-lame"
)

// Encoder is a constant bitrate MP3 encoder for 16-bit little-endian
// interleaved PCM. Compressed frames are written to the underlying writer as
// they are produced. Close must be called to flush the final frames.
type Encoder struct {
	lame   *lame.Encoder
	closed bool
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer, sampleRate, channels, bitrateKbps int) (*Encoder, error) {
	enc := lame.NewEncoder(w)

	if err := enc.SetInSamplerate(sampleRate); err != nil {
		enc.Close()
		return nil, fmt.Errorf("unable to set mp3 sample rate: %w", err)
	}
	if err := enc.SetNumChannels(channels); err != nil {
		enc.Close()
		return nil, fmt.Errorf("unable to set mp3 channel count: %w", err)
	}
	if err := enc.SetBrate(bitrateKbps); err != nil {
		enc.Close()
		return nil, fmt.Errorf("unable to set mp3 bitrate: %w", err)
	}

	return &Encoder{lame: enc}, nil
}

// Write encodes a chunk of PCM bytes.
func (e *Encoder) Write(pcm []byte) (int, error) {
	if e.closed {
		return 0, io.ErrClosedPipe
	}
	return e.lame.Write(pcm)
}

// Close flushes buffered audio and releases the encoder. It is safe to call
// more than once.
//
// lame's Close performs the only flush and does not report its errors, so
// Close always returns nil.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.lame.Close()
	return nil
}

var _ io.WriteCloser = (*Encoder)(nil)
