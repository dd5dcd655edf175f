package mp3

import (
	"bytes"
	"errors"
	"io"
	"time"

	frames "github.com/tcolgate/mp3"
)

var ErrNoFrames = errors.New("no mp3 frames found")

// HasSignature reports whether b starts like an MP3 file: either an ID3v2
// tag or an MPEG audio frame sync.
func HasSignature(b []byte) bool {
	if len(b) >= 3 && b[0] == 'I' && b[1] == 'D' && b[2] == '3' {
		return true
	}
	return len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0
}

// Info describes an MP3 bitstream.
type Info struct {
	Frames   int
	Duration time.Duration
	// Skipped counts bytes that were not part of any frame (tags, junk).
	Skipped int
}

// Probe walks every frame in r and sums their durations.
func Probe(r io.Reader) (Info, error) {
	var (
		info    Info
		frame   frames.Frame
		skipped int
	)

	decoder := frames.NewDecoder(r)
	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// A short trailing frame still leaves the earlier ones usable.
			if errors.Is(err, io.ErrUnexpectedEOF) && info.Frames > 0 {
				break
			}
			return info, err
		}
		info.Frames++
		info.Skipped += skipped
		info.Duration += frame.Duration()
	}

	if info.Frames == 0 {
		return info, ErrNoFrames
	}
	return info, nil
}

// ProbeBytes is Probe over an in-memory bitstream.
func ProbeBytes(b []byte) (Info, error) {
	return Probe(bytes.NewReader(b))
}
