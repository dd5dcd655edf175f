package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type TranscodeConfig struct {
	Strategy          string        `env:"TRANSCODE_STRATEGY, default=streaming"`
	BufferPoolSlots   int           `env:"BUFFER_POOL_SLOTS, default=64"`
	TranscoderPath    string        `env:"TRANSCODER_PATH, default=ffmpeg"`
	StagingDir        string        `env:"STAGING_DIR"`
	TranscoderTimeout time.Duration `env:"TRANSCODER_TIMEOUT, default=2m"`
}

func NewTranscodeConfigFromEnv() (*TranscodeConfig, error) {
	var cfg TranscodeConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}

	switch cfg.Strategy {
	case "streaming", "staged":
	default:
		return nil, fmt.Errorf("TRANSCODE_STRATEGY must be streaming or staged, got %q", cfg.Strategy)
	}
	if cfg.BufferPoolSlots < 1 {
		return nil, fmt.Errorf("BUFFER_POOL_SLOTS must be at least 1, got %d", cfg.BufferPoolSlots)
	}
	if cfg.TranscoderTimeout < 0 {
		return nil, fmt.Errorf("TRANSCODER_TIMEOUT must not be negative")
	}

	return &cfg, nil
}
