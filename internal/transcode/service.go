package transcode

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"time"

	"github.com/glizzus/opus2mp3/internal/metrics"
)

const opService = "convert"

// Service exposes a Converter through the base64 text contract.
type Service struct {
	name      string
	converter Converter
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewService wraps converter. name labels logs and metrics, m may be nil.
func NewService(name string, converter Converter, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		name:      name,
		converter: converter,
		metrics:   m,
		logger:    logger.With(slog.String("strategy", name)),
	}
}

// Name is the strategy name the service was built with.
func (s *Service) Name() string {
	return s.name
}

// ConvertBase64 decodes opusBase64, converts it and returns the MP3 as
// standard base64.
func (s *Service) ConvertBase64(ctx context.Context, opusBase64 string) (string, error) {
	in, err := DecodeInput(opusBase64)
	if err != nil {
		return "", err
	}

	start := time.Now()
	out, err := s.converter.Convert(ctx, in)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
		s.logger.ErrorContext(
			ctx,
			"conversion failed",
			slog.String("kind", outcome),
			slog.Int("inputBytes", len(in)),
			slog.Any("error", err),
		)
	} else {
		s.logger.InfoContext(
			ctx,
			"conversion succeeded",
			slog.Int("inputBytes", len(in)),
			slog.Int("outputBytes", len(out)),
			slog.Duration("elapsed", elapsed),
		)
	}
	if s.metrics != nil {
		s.metrics.ObserveConversion(s.name, outcome, elapsed, len(in), len(out))
	}
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(out), nil
}

// DecodeInput validates and decodes the base64 text payload. Blank input is
// rejected before anything is allocated.
func DecodeInput(opusBase64 string) ([]byte, error) {
	if strings.TrimSpace(opusBase64) == "" {
		return nil, newError(KindInvalidArgument, opService, ErrEmptyInput)
	}

	in, err := base64.StdEncoding.DecodeString(opusBase64)
	if err != nil {
		return nil, newError(KindMalformedEncoding, opService, err)
	}
	if len(in) == 0 {
		return nil, newError(KindInvalidArgument, opService, ErrEmptyInput)
	}
	return in, nil
}
