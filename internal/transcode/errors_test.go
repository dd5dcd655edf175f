package transcode_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/glizzus/opus2mp3/internal/transcode"
)

func TestKindOf(t *testing.T) {
	toolErr := &transcode.Error{
		Kind: transcode.KindExternalTool,
		Op:   "staged convert",
		Err:  &transcode.ExternalToolError{Tool: "ffmpeg", ExitCode: 1},
	}

	tc := []struct {
		name      string
		err       error
		kind      transcode.Kind
		malformed bool
	}{
		{
			name:      "invalid argument",
			err:       &transcode.Error{Kind: transcode.KindInvalidArgument, Err: transcode.ErrEmptyInput},
			kind:      transcode.KindInvalidArgument,
			malformed: true,
		},
		{
			name:      "malformed encoding wrapped",
			err:       fmt.Errorf("handler: %w", &transcode.Error{Kind: transcode.KindMalformedEncoding}),
			kind:      transcode.KindMalformedEncoding,
			malformed: true,
		},
		{
			name: "codec",
			err:  &transcode.Error{Kind: transcode.KindCodec, Err: transcode.ErrNoAudio},
			kind: transcode.KindCodec,
		},
		{
			name: "external tool",
			err:  toolErr,
			kind: transcode.KindExternalTool,
		},
		{
			name: "foreign error",
			err:  errors.New("boom"),
			kind: transcode.KindUnknown,
		},
		{
			name: "nil",
			err:  nil,
			kind: transcode.KindUnknown,
		},
	}

	for _, test := range tc {
		t.Run(test.name, func(t *testing.T) {
			if got := transcode.KindOf(test.err); got != test.kind {
				t.Errorf("KindOf() = %v; want %v", got, test.kind)
			}
			if got := transcode.IsMalformedInput(test.err); got != test.malformed {
				t.Errorf("IsMalformedInput() = %v; want %v", got, test.malformed)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := error(&transcode.Error{
		Kind: transcode.KindExternalTool,
		Op:   "staged convert",
		Err:  &transcode.ExternalToolError{Tool: "ffmpeg", ExitCode: 2, Stderr: "bad input"},
	})

	var toolErr *transcode.ExternalToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ExternalToolError in chain of %v", err)
	}
	if toolErr.ExitCode != 2 {
		t.Errorf("expected exit code 2, got %d", toolErr.ExitCode)
	}

	want := "staged convert: external_tool: ffmpeg exited with status 2: bad input"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q; want %q", got, want)
	}
}

func TestKindString(t *testing.T) {
	tc := map[transcode.Kind]string{
		transcode.KindUnknown:           "unknown",
		transcode.KindInvalidArgument:   "invalid_argument",
		transcode.KindMalformedEncoding: "malformed_encoding",
		transcode.KindCodec:             "codec",
		transcode.KindExternalTool:      "external_tool",
		transcode.KindResource:          "resource",
	}
	for kind, want := range tc {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q; want %q", kind, got, want)
		}
	}
}
