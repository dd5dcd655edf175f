package transcode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/glizzus/opus2mp3/internal/bufpool"
	"github.com/glizzus/opus2mp3/internal/mp3"
	"github.com/glizzus/opus2mp3/internal/opus"
	"github.com/glizzus/opus2mp3/internal/pcm"
)

const opStreaming = "streaming convert"

// Streaming converts entirely in memory, one Opus packet at a time.
// Each call checks one PCM buffer out of the shared pool for its duration.
type Streaming struct {
	pool   *bufpool.Pool
	opts   Options
	logger *slog.Logger
}

// NewStreaming returns a Streaming converter drawing PCM buffers from pool.
func NewStreaming(pool *bufpool.Pool, opts Options, logger *slog.Logger) (*Streaming, error) {
	if pool == nil {
		return nil, fmt.Errorf("buffer pool is required")
	}
	if pool.BufferSize() < opts.PCMBufferSize() {
		return nil, fmt.Errorf("pool buffers hold %d bytes, need at least %d", pool.BufferSize(), opts.PCMBufferSize())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Streaming{pool: pool, opts: opts, logger: logger}, nil
}

// NewStreamingPool sizes a pool for Streaming converters using opts.
func NewStreamingPool(slots int, opts Options) *bufpool.Pool {
	return bufpool.New(slots, opts.PCMBufferSize())
}

func (s *Streaming) Convert(ctx context.Context, in []byte) ([]byte, error) {
	if len(in) == 0 {
		return nil, newError(KindInvalidArgument, opStreaming, ErrEmptyInput)
	}

	buf, err := s.pool.Checkout()
	if err != nil {
		return nil, newError(KindResource, opStreaming, err)
	}
	defer s.pool.Return(buf)

	reader, err := opus.NewPacketReader(bytes.NewReader(in), s.opts.SampleRate, s.opts.Channels)
	if err != nil {
		return nil, newError(KindResource, opStreaming, err)
	}

	var out bytes.Buffer
	samples, err := s.transcode(reader, buf.B, &out)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(
		ctx,
		"streaming conversion finished",
		slog.Int("inputBytes", len(in)),
		slog.Int("samples", samples),
		slog.Int("outputBytes", out.Len()),
	)
	return out.Bytes(), nil
}

// transcode runs the packet loop. The encoder is closed on every path; on
// success its flush error is the call's error.
func (s *Streaming) transcode(reader *opus.PacketReader, scratch []byte, w io.Writer) (samples int, err error) {
	encoder, err := mp3.NewEncoder(w, s.opts.SampleRate, s.opts.Channels, s.opts.BitrateKbps)
	if err != nil {
		return 0, newError(KindResource, opStreaming, err)
	}
	defer func() {
		if cerr := encoder.Close(); cerr != nil && err == nil {
			err = newError(KindResource, opStreaming, cerr)
		}
	}()

	for reader.HasNextPacket() {
		frame, derr := reader.DecodeNextPacket()
		if derr != nil {
			return samples, newError(KindCodec, opStreaming, derr)
		}
		if len(frame) == 0 {
			continue
		}

		n := pcm.PutSamples(scratch, frame)
		if _, werr := encoder.Write(scratch[:n]); werr != nil {
			return samples, newError(KindResource, opStreaming, fmt.Errorf("unable to encode mp3: %w", werr))
		}
		samples += len(frame)
	}
	if rerr := reader.Err(); rerr != nil {
		return samples, newError(KindCodec, opStreaming, rerr)
	}
	if samples == 0 {
		return 0, newError(KindCodec, opStreaming, ErrNoAudio)
	}
	return samples, nil
}

var _ Converter = (*Streaming)(nil)
