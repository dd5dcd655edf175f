package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/glizzus/opus2mp3/internal/config"
	"github.com/glizzus/opus2mp3/internal/generator"
	"github.com/glizzus/opus2mp3/internal/mp3"
	"github.com/glizzus/opus2mp3/internal/opus"
	"github.com/glizzus/opus2mp3/internal/pcm"
	"github.com/glizzus/opus2mp3/internal/staging"
	"github.com/glizzus/opus2mp3/internal/transcode"
)

const toneAmplitude = 8000

func newApp(logger *slog.Logger) *cli.App {
	return &cli.App{
		Name:        "opus2mp3",
		Usage:       "Convert Opus-in-Ogg audio to MP3",
		Description: "A development CLI for exercising the converters without the HTTP service",
		Commands: []*cli.Command{
			convertCommand(logger),
			toneCommand(),
			probeCommand(),
			sweepCommand(logger),
		},
	}
}

func convertCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Convert an Opus-in-Ogg file to MP3",
		Flags: []cli.Flag{
			&cli.PathFlag{Name: "in", Usage: "Opus-in-Ogg input file", Required: true},
			&cli.PathFlag{Name: "out", Usage: "MP3 output file", Required: true},
			&cli.StringFlag{Name: "strategy", Usage: "streaming or staged (defaults to TRANSCODE_STRATEGY)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.NewTranscodeConfigFromEnv()
			if err != nil {
				return cli.Exit("Invalid configuration: "+err.Error(), 1)
			}
			strategy := c.String("strategy")
			if strategy == "" {
				strategy = cfg.Strategy
			}

			converter, err := newConverter(strategy, cfg, logger)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			in, err := os.ReadFile(c.Path("in"))
			if err != nil {
				return cli.Exit("Failed to read input: "+err.Error(), 1)
			}

			start := time.Now()
			out, err := converter.Convert(c.Context, in)
			if err != nil {
				return cli.Exit("Conversion failed: "+err.Error(), 1)
			}

			if err := os.WriteFile(c.Path("out"), out, 0o644); err != nil {
				return cli.Exit("Failed to write output: "+err.Error(), 1)
			}

			logger.Info("Converted file",
				"strategy", strategy,
				"in", c.Path("in"),
				"out", c.Path("out"),
				"outputBytes", len(out),
				"elapsed", time.Since(start),
			)
			return nil
		},
	}
}

func newConverter(strategy string, cfg *config.TranscodeConfig, logger *slog.Logger) (transcode.Converter, error) {
	opts := transcode.DefaultOptions()

	switch strategy {
	case transcode.StrategyStreaming:
		return transcode.NewStreaming(transcode.NewStreamingPool(1, opts), opts, logger)
	case transcode.StrategyStaged:
		dir, err := staging.EnsureDir(cfg.StagingDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create staging directory: %w", err)
		}
		return transcode.NewStaged(transcode.StagedConfig{
			Tool:    cfg.TranscoderPath,
			Dir:     dir,
			Timeout: cfg.TranscoderTimeout,
		}, opts, &generator.HexIDGenerator{}, logger)
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
}

func toneCommand() *cli.Command {
	return &cli.Command{
		Name:  "tone",
		Usage: "Write a stereo 48kHz sine tone as Opus-in-Ogg",
		Flags: []cli.Flag{
			&cli.PathFlag{Name: "out", Usage: "Opus-in-Ogg output file", Required: true},
			&cli.DurationFlag{Name: "duration", Value: 100 * time.Millisecond},
			&cli.Float64Flag{Name: "frequency", Value: 440},
			&cli.IntFlag{Name: "bitrate", Value: 64000, Usage: "Opus bitrate in bits per second, effectively capped near 100 kbps"},
		},
		Action: func(c *cli.Context) error {
			if c.Duration("duration") <= 0 {
				return cli.Exit("Duration must be positive", 1)
			}

			samples := pcm.SineTone(c.Duration("duration"), c.Float64("frequency"), toneAmplitude, pcm.SampleRate, pcm.Channels)

			var buf bytes.Buffer
			if err := opus.EncodeOgg(&buf, samples, pcm.SampleRate, pcm.Channels, c.Int("bitrate")); err != nil {
				return cli.Exit("Failed to encode tone: "+err.Error(), 1)
			}
			if err := os.WriteFile(c.Path("out"), buf.Bytes(), 0o644); err != nil {
				return cli.Exit("Failed to write output: "+err.Error(), 1)
			}
			return nil
		},
	}
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "Print the frame count and duration of an MP3 file",
		Flags: []cli.Flag{
			&cli.PathFlag{Name: "in", Usage: "MP3 input file", Required: true},
		},
		Action: func(c *cli.Context) error {
			f, err := os.Open(c.Path("in"))
			if err != nil {
				return cli.Exit("Failed to open input: "+err.Error(), 1)
			}
			defer f.Close()

			info, err := mp3.Probe(f)
			if err != nil {
				return cli.Exit("Failed to probe input: "+err.Error(), 1)
			}

			fmt.Fprintf(c.App.Writer, "frames=%d duration=%s skipped=%d\n", info.Frames, info.Duration, info.Skipped)
			return nil
		},
	}
}

func sweepCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Remove stale staged files",
		Flags: []cli.Flag{
			&cli.PathFlag{Name: "dir", Usage: "Staging directory (defaults to STAGING_DIR or the platform default)"},
			&cli.DurationFlag{Name: "max-age", Value: 15 * time.Minute},
		},
		Action: func(c *cli.Context) error {
			dir := c.Path("dir")
			if dir == "" {
				dir = os.Getenv("STAGING_DIR")
			}
			if dir == "" {
				dir = staging.DefaultDir()
			}

			result := staging.Sweep(c.Context, dir, c.Duration("max-age"), logger)
			for _, path := range result.Removed {
				fmt.Fprintln(c.App.Writer, path)
			}
			if len(result.Errors) > 0 {
				return cli.Exit(fmt.Sprintf("Failed to remove %d staged files", len(result.Errors)), 1)
			}
			return nil
		},
	}
}
