package opus

import (
	"errors"
	"fmt"
	"io"

	"github.com/jonas747/ogg"
	libopus "gopkg.in/hraban/opus.v2"
)

// MaxFrameSize is the largest number of samples per channel a single Opus
// packet can decode to (120ms at 48kHz).
const MaxFrameSize = 5760

var (
	ErrNoPacket = errors.New("no packet pending; call HasNextPacket first")
	// ErrMissingEOS means the stream ended before a page flagged end of
	// stream. A packet continued across that final page boundary is lost.
	ErrMissingEOS = errors.New("ogg stream ended without an end-of-stream page")
)

// PacketReader decodes an Ogg Opus stream packet by packet.
// It is not safe for concurrent use.
type PacketReader struct {
	packets  *ogg.PacketDecoder
	decoder  *libopus.Decoder
	channels int
	pcm      []int16

	pending []byte
	ok      bool
	err     error

	pageSeen bool
	eosSeen  bool

	headSeen bool
	tagsSeen bool
	skip     int
}

// NewPacketReader returns a PacketReader that decodes the Ogg stream in r to
// PCM at the given sample rate and channel count.
func NewPacketReader(r io.Reader, sampleRate, channels int) (*PacketReader, error) {
	decoder, err := libopus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("unable to create opus decoder: %w", err)
	}

	return &PacketReader{
		packets:  ogg.NewPacketDecoder(ogg.NewDecoder(r)),
		decoder:  decoder,
		channels: channels,
		pcm:      make([]int16, MaxFrameSize*channels),
	}, nil
}

// HasNextPacket reads ahead to the next packet in the stream. It returns
// false at the end of the stream or on a read error; Err tells them apart.
// A stream that has pages but no EOS page ends with ErrMissingEOS.
func (r *PacketReader) HasNextPacket() bool {
	if r.err != nil {
		return false
	}

	packet, page, err := r.packets.Decode()
	// page is only populated when Decode had to read a new one.
	if page.Nsegs > 0 {
		r.pageSeen = true
		if page.Type&ogg.EOS != 0 {
			r.eosSeen = true
		}
	}
	if err != nil {
		switch {
		case !errors.Is(err, io.EOF):
			r.err = fmt.Errorf("unable to read ogg packet: %w", err)
		case r.pageSeen && !r.eosSeen:
			r.err = ErrMissingEOS
		}
		r.pending, r.ok = nil, false
		return false
	}

	r.pending, r.ok = packet, true
	return true
}

// Err returns the first container error hit by HasNextPacket, if any.
func (r *PacketReader) Err() error {
	return r.err
}

// DecodeNextPacket decodes the packet found by the last HasNextPacket call.
//
// Header packets and empty packets decode to a nil frame. The returned slice
// is only valid until the next call.
func (r *PacketReader) DecodeNextPacket() ([]int16, error) {
	if !r.ok {
		return nil, ErrNoPacket
	}
	packet := r.pending
	r.pending, r.ok = nil, false

	if !r.headSeen {
		head, err := ParseHead(packet)
		if err != nil {
			return nil, err
		}
		r.headSeen = true
		r.skip = int(head.PreSkip)
		return nil, nil
	}

	if !r.tagsSeen {
		r.tagsSeen = true
		if isTags(packet) {
			return nil, nil
		}
	}

	if len(packet) == 0 {
		return nil, nil
	}

	n, err := r.decoder.Decode(packet, r.pcm)
	if err != nil {
		return nil, fmt.Errorf("unable to decode opus packet: %w", err)
	}

	samples := r.pcm[:n*r.channels]
	if r.skip > 0 {
		drop := min(r.skip, n)
		r.skip -= drop
		samples = samples[drop*r.channels:]
	}
	return samples, nil
}
