package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"chronicles/internal/app/server"
	"chronicles/internal/app/server/config"
	"chronicles/internal/utils/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
