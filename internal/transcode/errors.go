package transcode

import (
	"errors"
	"fmt"
)

// Kind classifies a conversion failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindInvalidArgument means the input was missing, empty or blank.
	KindInvalidArgument
	// KindMalformedEncoding means the input text was not valid base64.
	KindMalformedEncoding
	// KindCodec means the input bytes are not a decodable Opus-in-Ogg stream.
	KindCodec
	// KindExternalTool means the external transcoder exited unsuccessfully.
	KindExternalTool
	// KindResource covers pool exhaustion, staging I/O and codec setup.
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindMalformedEncoding:
		return "malformed_encoding"
	case KindCodec:
		return "codec"
	case KindExternalTool:
		return "external_tool"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyInput = errors.New("input is empty")
	ErrNoAudio    = errors.New("stream contains no audio")
	ErrNoOutput   = errors.New("transcoder produced no output")
)

// Error is the failure type returned by every converter in this package.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var _ error = (*Error)(nil)

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// ExternalToolError carries the result of a transcoder process that exited
// with a non-zero status.
type ExternalToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ExternalToolError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Tool, e.ExitCode, e.Stderr)
}

var _ error = (*ExternalToolError)(nil)

// KindOf reports the Kind of err, or KindUnknown when err did not come from
// this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsMalformedInput reports whether err was caused by the caller's input
// rather than by processing it. Everything else is a processing failure.
func IsMalformedInput(err error) bool {
	switch KindOf(err) {
	case KindInvalidArgument, KindMalformedEncoding:
		return true
	default:
		return false
	}
}
