package opus

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	headMagic = []byte("OpusHead")
	tagsMagic = []byte("OpusTags")
)

var (
	ErrNotOpus            = errors.New("stream does not start with an OpusHead packet")
	ErrUnsupportedVersion = errors.New("unsupported OpusHead version")
)

// headSize is the size of an OpusHead packet for channel mapping family 0.
const headSize = 19

// Head is the Opus identification header (RFC 7845 section 5.1).
type Head struct {
	Version         uint8
	Channels        uint8
	PreSkip         uint16
	InputSampleRate uint32
	OutputGain      int16
	MappingFamily   uint8
}

// ParseHead parses an OpusHead packet.
func ParseHead(packet []byte) (Head, error) {
	var h Head
	if len(packet) < headSize || !bytes.HasPrefix(packet, headMagic) {
		return h, ErrNotOpus
	}

	h.Version = packet[8]
	h.Channels = packet[9]
	h.PreSkip = binary.LittleEndian.Uint16(packet[10:12])
	h.InputSampleRate = binary.LittleEndian.Uint32(packet[12:16])
	h.OutputGain = int16(binary.LittleEndian.Uint16(packet[16:18]))
	h.MappingFamily = packet[18]

	// The upper nibble is the major version; only major version 0 exists.
	if h.Version>>4 != 0 {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.Channels == 0 || h.Channels > 2 {
		return h, fmt.Errorf("unsupported channel count %d", h.Channels)
	}
	return h, nil
}

// Bytes serializes h as an OpusHead packet with channel mapping family 0.
func (h Head) Bytes() []byte {
	b := make([]byte, headSize)
	copy(b, headMagic)
	b[8] = h.Version
	b[9] = h.Channels
	binary.LittleEndian.PutUint16(b[10:12], h.PreSkip)
	binary.LittleEndian.PutUint32(b[12:16], h.InputSampleRate)
	binary.LittleEndian.PutUint16(b[16:18], uint16(h.OutputGain))
	b[18] = 0
	return b
}

// TagsPacket builds an OpusTags packet with the given vendor string and no
// user comments.
func TagsPacket(vendor string) []byte {
	b := make([]byte, 0, len(tagsMagic)+8+len(vendor))
	b = append(b, tagsMagic...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(vendor)))
	b = append(b, vendor...)
	b = binary.LittleEndian.AppendUint32(b, 0)
	return b
}

func isTags(packet []byte) bool {
	return bytes.HasPrefix(packet, tagsMagic)
}
