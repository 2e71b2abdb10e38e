package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/app"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/config"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if settings.SigningKey == "" {
		log.Printf("no signing key configured; login tokens will not survive a restart")
	}
	logger := telemetry.WrapLogger(log.Default())
	if err := app.Run(ctx, app.Config{Logger: logger, Settings: settings}); err != nil {
		log.Fatalf("%v", err)
	}
}
