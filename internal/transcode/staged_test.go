package transcode_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/glizzus/opus2mp3/internal/mp3"
	"github.com/glizzus/opus2mp3/internal/transcode"
)

type fixedIDs struct {
	id string
}

func (g *fixedIDs) Next() (string, error) {
	return g.id, nil
}

type failingIDs struct{}

func (failingIDs) Next() (string, error) {
	return "", errors.New("entropy unavailable")
}

// writeTool writes an executable shell script standing in for the
// transcoder. It lives outside the staging directory.
func writeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script transcoder requires a unix shell")
	}
	path := filepath.Join(t.TempDir(), "transcoder")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write fake transcoder: %v", err)
	}
	return path
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read staging dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected staging dir to be empty, found %v", names)
	}
}

func newStaged(t *testing.T, tool string, cfg transcode.StagedConfig, ids *fixedIDs) *transcode.Staged {
	t.Helper()
	cfg.Tool = tool
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	var s *transcode.Staged
	var err error
	if ids != nil {
		s, err = transcode.NewStaged(cfg, transcode.DefaultOptions(), ids, nil)
	} else {
		s, err = transcode.NewStaged(cfg, transcode.DefaultOptions(), nil, nil)
	}
	if err != nil {
		t.Fatalf("NewStaged returned error: %v", err)
	}
	return s
}

func TestStagedConvertSuccess(t *testing.T) {
	capture := t.TempDir()
	argsFile := filepath.Join(capture, "args")
	inputCopy := filepath.Join(capture, "input")

	tool := writeTool(t, `
printf '%s\n' "$@" > "`+argsFile+`"
cp "$2" "`+inputCopy+`"
printf 'ID3mp3data' > "$6"
`)
	dir := t.TempDir()
	s := newStaged(t, tool, transcode.StagedConfig{Dir: dir}, &fixedIDs{id: "0123456789abcdef0123456789abcdef"})

	in := []byte("OggS pretend opus")
	out, err := s.Convert(t.Context(), in)
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if diff := cmp.Diff([]byte("ID3mp3data"), out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	rawArgs, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("transcoder args were not captured: %v", err)
	}
	wantArgs := []string{
		"-i", filepath.Join(dir, "0123456789abcdef0123456789abcdef.opus"),
		"-b:a", "128k",
		"-y", filepath.Join(dir, "0123456789abcdef0123456789abcdef.mp3"),
	}
	if diff := cmp.Diff(wantArgs, strings.Fields(string(rawArgs))); diff != "" {
		t.Errorf("transcoder args mismatch (-want +got):\n%s", diff)
	}

	staged, err := os.ReadFile(inputCopy)
	if err != nil {
		t.Fatalf("transcoder did not see the input file: %v", err)
	}
	if diff := cmp.Diff(in, staged); diff != "" {
		t.Errorf("staged input mismatch (-want +got):\n%s", diff)
	}

	assertEmptyDir(t, dir)
}

func TestStagedConvertNonZeroExit(t *testing.T) {
	tool := writeTool(t, `
echo "ignored stdout"
echo "  Invalid data found when processing input  " >&2
printf 'partial' > "$6"
exit 3
`)
	dir := t.TempDir()
	s := newStaged(t, tool, transcode.StagedConfig{Dir: dir}, nil)

	out, err := s.Convert(t.Context(), []byte("not really opus"))
	if out != nil {
		t.Errorf("expected no output, got %q", out)
	}
	if kind := transcode.KindOf(err); kind != transcode.KindExternalTool {
		t.Fatalf("expected external tool error, got %v (%v)", kind, err)
	}

	var toolErr *transcode.ExternalToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ExternalToolError in chain, got %v", err)
	}
	want := &transcode.ExternalToolError{
		Tool:     tool,
		ExitCode: 3,
		Stderr:   "Invalid data found when processing input",
	}
	if diff := cmp.Diff(want, toolErr); diff != "" {
		t.Errorf("tool error mismatch (-want +got):\n%s", diff)
	}

	assertEmptyDir(t, dir)
}

func TestStagedConvertFailures(t *testing.T) {
	tc := []struct {
		name   string
		tool   func(t *testing.T) string
		in     []byte
		kind   transcode.Kind
		target error
	}{
		{
			name: "empty input",
			tool: func(t *testing.T) string { return writeTool(t, `printf 'ID3' > "$6"`) },
			in:   nil,
			kind: transcode.KindInvalidArgument,
		},
		{
			name: "missing binary",
			tool: func(t *testing.T) string { return filepath.Join(t.TempDir(), "no-such-transcoder") },
			in:   []byte("x"),
			kind: transcode.KindResource,
		},
		{
			name:   "no output written",
			tool:   func(t *testing.T) string { return writeTool(t, `exit 0`) },
			in:     []byte("x"),
			kind:   transcode.KindResource,
			target: os.ErrNotExist,
		},
		{
			name:   "empty output written",
			tool:   func(t *testing.T) string { return writeTool(t, `: > "$6"`) },
			in:     []byte("x"),
			kind:   transcode.KindExternalTool,
			target: transcode.ErrNoOutput,
		},
	}

	for _, test := range tc {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			s := newStaged(t, test.tool(t), transcode.StagedConfig{Dir: dir}, nil)

			out, err := s.Convert(t.Context(), test.in)
			if err == nil {
				t.Fatalf("expected error, got %d bytes", len(out))
			}
			if kind := transcode.KindOf(err); kind != test.kind {
				t.Errorf("expected kind %v, got %v (%v)", test.kind, kind, err)
			}
			if test.target != nil && !errors.Is(err, test.target) {
				t.Errorf("expected %v in chain, got %v", test.target, err)
			}
			assertEmptyDir(t, dir)
		})
	}
}

func TestStagedConvertTimeout(t *testing.T) {
	tool := writeTool(t, `exec sleep 5`)
	dir := t.TempDir()
	s := newStaged(t, tool, transcode.StagedConfig{Dir: dir, Timeout: 100 * time.Millisecond}, nil)

	start := time.Now()
	_, err := s.Convert(t.Context(), []byte("x"))
	if kind := transcode.KindOf(err); kind != transcode.KindResource {
		t.Errorf("expected resource error, got %v (%v)", kind, err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("expected the transcoder to be killed, took %v", elapsed)
	}
	assertEmptyDir(t, dir)
}

func TestStagedConvertIDFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := transcode.NewStaged(
		transcode.StagedConfig{Tool: "ffmpeg", Dir: dir},
		transcode.DefaultOptions(),
		failingIDs{},
		nil,
	)
	if err != nil {
		t.Fatalf("NewStaged returned error: %v", err)
	}

	_, err = s.Convert(t.Context(), []byte("x"))
	if kind := transcode.KindOf(err); kind != transcode.KindResource {
		t.Errorf("expected resource error, got %v (%v)", kind, err)
	}
	assertEmptyDir(t, dir)
}

func TestStagedConvertConcurrent(t *testing.T) {
	tool := writeTool(t, `cat "$2" > "$6"`)
	dir := t.TempDir()
	s := newStaged(t, tool, transcode.StagedConfig{Dir: dir}, nil)

	var wg sync.WaitGroup
	concurrency := 8
	wg.Add(concurrency)

	for i := range concurrency {
		go func() {
			defer wg.Done()
			in := []byte(strings.Repeat("x", i+1))
			out, err := s.Convert(t.Context(), in)
			if err != nil {
				t.Errorf("call %d: unexpected error: %v", i, err)
				return
			}
			if string(out) != string(in) {
				t.Errorf("call %d: got another call's output %q", i, out)
			}
		}()
	}
	wg.Wait()

	assertEmptyDir(t, dir)
}

func TestNewStagedValidation(t *testing.T) {
	opts := transcode.DefaultOptions()
	if _, err := transcode.NewStaged(transcode.StagedConfig{Dir: "/tmp"}, opts, nil, nil); err == nil {
		t.Error("expected an error without a tool")
	}
	if _, err := transcode.NewStaged(transcode.StagedConfig{Tool: "ffmpeg"}, opts, nil, nil); err == nil {
		t.Error("expected an error without a staging dir")
	}
}

func TestStagedConvertWithFFmpeg(t *testing.T) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}

	dir := t.TempDir()
	s := newStaged(t, ffmpeg, transcode.StagedConfig{Dir: dir, Timeout: time.Minute}, nil)

	out, err := s.Convert(t.Context(), opusTone(t, 100*time.Millisecond))
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if !mp3.HasSignature(out) {
		t.Errorf("output does not start with an mp3 signature: % x", out[:min(4, len(out))])
	}
	assertEmptyDir(t, dir)

	_, err = s.Convert(t.Context(), []byte("this is not an ogg stream"))
	if kind := transcode.KindOf(err); kind != transcode.KindExternalTool {
		t.Errorf("expected external tool error for bad input, got %v (%v)", kind, err)
	}
	assertEmptyDir(t, dir)
}
