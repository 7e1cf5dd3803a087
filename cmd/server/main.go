package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/shinokgavrin/Koch/config"
	"github.com/shinokgavrin/Koch/internal/adapter/rest"
	"github.com/shinokgavrin/Koch/internal/adapter/telegram"
)

func main() {
	// 1. Init Config
	config.Init()

	// 2. Init Logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Telegram Adapter (forwarder + history source)
	// A failure here is non-fatal: the REST surface keeps serving and
	// reports the degraded state.
	tgAdapter := telegram.NewAdapter(config.AppConfig.Telegram, logger.Named("telegram"))
	go func() {
		if err := tgAdapter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Telegram adapter stopped", zap.Error(err))
		}
	}()

	// 4. REST Adapter
	restAdapter := rest.NewAdapter(
		config.AppConfig.Server.Port,
		config.AppConfig.API.Key,
		tgAdapter,
		logger.Named("rest"),
	)
	go func() {
		if err := restAdapter.Start(ctx); err != nil {
			log.Fatalf("REST Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")
	cancel() // closes the Telegram connection
}
