package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/pdfchat/internal/config"
	logpkg "github.com/local/pdfchat/internal/logger"
)

func main() {
	cfg := cfgpkg.Load()

	logOpts := logpkg.Options{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		File: logpkg.FileOptions{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		},
	}
	if cfg.Axiom.Send {
		logOpts.Axiom = logpkg.AxiomOptions{
			Token:      cfg.Axiom.APIKey,
			OrgID:      cfg.Axiom.OrgID,
			Dataset:    cfg.Axiom.Dataset,
			FlushEvery: cfg.Axiom.FlushInterval,
		}
	}
	_ = logpkg.Init(logOpts)

	stopMetrics := serveMetrics(cfg.Metrics.Addr)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	a := newApp(cfg)
	err := a.rootCmd().ExecuteContext(ctx)
	a.Close()
	cancel()
	stopMetrics()
	logpkg.Close()

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		os.Exit(130)
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
