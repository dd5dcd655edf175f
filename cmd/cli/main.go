package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/glizzus/opus2mp3/internal/config"
)

func main() {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	app := newApp(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
