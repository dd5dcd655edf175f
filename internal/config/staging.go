package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/glizzus/opus2mp3/internal/schedule"
)

type StagingConfig struct {
	SweepCron string        `env:"STAGING_SWEEP_CRON, default=*/10 * * * *"`
	MaxAge    time.Duration `env:"STAGING_MAX_AGE, default=15m"`
}

func NewStagingConfigFromEnv() (*StagingConfig, error) {
	var cfg StagingConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if err := schedule.ValidateCron(cfg.SweepCron); err != nil {
		return nil, fmt.Errorf("STAGING_SWEEP_CRON: %w", err)
	}
	if cfg.MaxAge <= 0 {
		return nil, fmt.Errorf("STAGING_MAX_AGE must be positive")
	}
	return &cfg, nil
}

// sweepMargin covers the time a staged conversion may spend past its
// transcoder timeout: waiting for the killed process and reading the output.
const sweepMargin = 30 * time.Second

// CheckTranscoderTimeout reports an error when the janitor could remove the
// files of a conversion that is still allowed to run. A zero timeout never
// bounds a conversion, so it is rejected while the janitor is enabled.
func (c *StagingConfig) CheckTranscoderTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("TRANSCODER_TIMEOUT must be positive while the staging janitor runs (STAGING_MAX_AGE=%s)", c.MaxAge)
	}
	if c.MaxAge < timeout+sweepMargin {
		return fmt.Errorf("STAGING_MAX_AGE (%s) must be at least TRANSCODER_TIMEOUT (%s) plus %s", c.MaxAge, timeout, sweepMargin)
	}
	return nil
}
