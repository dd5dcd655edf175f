package opus

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jonas747/ogg"
	libopus "gopkg.in/hraban/opus.v2"
)

// DefaultPreSkip is the libopus encoder delay at 48kHz, written into the
// OpusHead of streams produced by EncodeOgg.
const DefaultPreSkip = 312

// maxPacketSize keeps every packet inside a single lacing segment. The ogg
// writer does not terminate a packet whose length is a multiple of 255, so a
// longer packet would run into the next one when read back. libopus lowers
// the frame's bitrate to fit.
const maxPacketSize = 254

const vendor = "opus2mp3"

var ErrNoSamples = errors.New("no samples to encode")

// EncodeOgg encodes interleaved PCM as 20ms Opus packets in an Ogg stream.
// The final frame is zero padded; its granule records the real length. The
// stream is closed with an empty EOS page.
//
// Each packet is capped at 254 bytes, which bounds the useful bitrate at
// roughly 100 kbps per stream.
func EncodeOgg(w io.Writer, pcm []int16, sampleRate, channels, bitrate int) error {
	if len(pcm) == 0 {
		return ErrNoSamples
	}

	encoder, err := libopus.NewEncoder(sampleRate, channels, libopus.AppAudio)
	if err != nil {
		return fmt.Errorf("unable to create opus encoder: %w", err)
	}
	if err := encoder.SetBitrate(bitrate); err != nil {
		return fmt.Errorf("unable to set opus bitrate: %w", err)
	}

	// Granule positions are always counted at 48kHz.
	scale := int64(48000 / sampleRate)
	frameSize := sampleRate / 50

	stream := ogg.NewEncoder(uuid.New().ID(), w)

	head := Head{
		Version:         1,
		Channels:        uint8(channels),
		PreSkip:         DefaultPreSkip,
		InputSampleRate: uint32(sampleRate),
	}
	if err := stream.EncodeBOS(0, head.Bytes()); err != nil {
		return fmt.Errorf("unable to write OpusHead: %w", err)
	}
	if err := stream.Encode(0, TagsPacket(vendor)); err != nil {
		return fmt.Errorf("unable to write OpusTags: %w", err)
	}

	frame := make([]int16, frameSize*channels)
	packet := make([]byte, maxPacketSize)
	total := int64(len(pcm) / channels)
	var granule int64

	for off := 0; off < len(pcm); off += len(frame) {
		n := copy(frame, pcm[off:])
		clear(frame[n:])

		size, err := encoder.Encode(frame, packet)
		if err != nil {
			return fmt.Errorf("unable to encode opus frame: %w", err)
		}

		granule += int64(frameSize) * scale
		if off+len(frame) >= len(pcm) {
			granule = total * scale
		}
		if err := stream.Encode(DefaultPreSkip+granule, packet[:size]); err != nil {
			return fmt.Errorf("unable to write ogg page: %w", err)
		}
	}

	if err := stream.EncodeEOS(); err != nil {
		return fmt.Errorf("unable to write final ogg page: %w", err)
	}
	return nil
}
