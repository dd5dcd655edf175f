package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type ServerConfig struct {
	Addr         string `env:"HTTP_ADDR, default=:8080"`
	MaxBodyBytes int64  `env:"HTTP_MAX_BODY_BYTES, default=33554432"`
	GinMode      string `env:"GIN_MODE, default=release"`
}

func NewServerConfigFromEnv() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("HTTP_MAX_BODY_BYTES must be positive")
	}
	return &cfg, nil
}
