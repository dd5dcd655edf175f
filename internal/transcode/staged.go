package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/glizzus/opus2mp3/internal/generator"
)

const opStaged = "staged convert"

const (
	InputExt  = ".opus"
	OutputExt = ".mp3"
)

const waitDelay = 2 * time.Second

// StagedConfig configures the external transcoder.
type StagedConfig struct {
	// Tool is the transcoder binary, looked up on PATH when not absolute.
	Tool string
	// Dir is the staging directory. It must exist.
	Dir string
	// Timeout bounds one transcoder run. Zero means no limit.
	Timeout time.Duration
}

// Staged converts by writing the input to the staging directory and running
// `<tool> -i <in> -b:a <bitrate>k -y <out>`.
type Staged struct {
	cfg    StagedConfig
	opts   Options
	ids    generator.Generator[string]
	logger *slog.Logger
}

// NewStaged returns a Staged converter. A nil ids falls back to random hex ids.
func NewStaged(cfg StagedConfig, opts Options, ids generator.Generator[string], logger *slog.Logger) (*Staged, error) {
	if strings.TrimSpace(cfg.Tool) == "" {
		return nil, fmt.Errorf("transcoder tool is required")
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("staging directory is required")
	}
	if ids == nil {
		ids = &generator.HexIDGenerator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Staged{cfg: cfg, opts: opts, ids: ids, logger: logger}, nil
}

func (s *Staged) Convert(ctx context.Context, in []byte) ([]byte, error) {
	if len(in) == 0 {
		return nil, newError(KindInvalidArgument, opStaged, ErrEmptyInput)
	}

	id, err := s.ids.Next()
	if err != nil {
		return nil, newError(KindResource, opStaged, fmt.Errorf("unable to generate staging id: %w", err))
	}
	inPath := filepath.Join(s.cfg.Dir, id+InputExt)
	outPath := filepath.Join(s.cfg.Dir, id+OutputExt)
	defer s.removeStaged(ctx, inPath, outPath)

	if err := writeSynced(inPath, in); err != nil {
		return nil, newError(KindResource, opStaged, err)
	}

	if err := s.run(ctx, inPath, outPath); err != nil {
		return nil, err
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, newError(KindResource, opStaged, fmt.Errorf("unable to read transcoder output: %w", err))
	}
	if len(out) == 0 {
		return nil, newError(KindExternalTool, opStaged, ErrNoOutput)
	}
	return out, nil
}

func (s *Staged) run(ctx context.Context, inPath, outPath string) error {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, s.cfg.Tool,
		"-i", inPath,
		"-b:a", s.opts.bitrateArg(),
		"-y", outPath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Grandchildren can hold the output pipes open after the tool is killed.
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	if err == nil {
		s.logger.DebugContext(
			ctx,
			"transcoder finished",
			slog.String("tool", s.cfg.Tool),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil
	}

	// A killed child also reports an ExitError; name the real cause instead.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return newError(KindResource, opStaged, fmt.Errorf("%s interrupted: %w", s.cfg.Tool, ctxErr))
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return newError(KindExternalTool, opStaged, &ExternalToolError{
			Tool:     s.cfg.Tool,
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
		})
	}
	return newError(KindResource, opStaged, fmt.Errorf("unable to run %s: %w", s.cfg.Tool, err))
}

// removeStaged deletes whatever staging files exist. Failures are logged and
// otherwise ignored.
func (s *Staged) removeStaged(ctx context.Context, paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.WarnContext(
				ctx,
				"failed to remove staging file",
				slog.String("path", path),
				slog.Any("error", err),
			)
		}
	}
}

// writeSynced creates path, which must not exist, and writes data to stable
// storage before returning.
func writeSynced(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create staging file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("unable to close staging file: %w", cerr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("unable to write staging file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("unable to sync staging file: %w", err)
	}
	return nil
}

var _ Converter = (*Staged)(nil)
