package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfchat/internal/ai"
	cfgpkg "github.com/local/pdfchat/internal/config"
	"github.com/local/pdfchat/internal/document"
	"github.com/local/pdfchat/internal/metrics"
	"github.com/local/pdfchat/internal/mupdf"
	"github.com/local/pdfchat/internal/statuscheck"
	"github.com/local/pdfchat/internal/storage"
	"github.com/local/pdfchat/internal/store"
)

// deps holds the long-lived collaborators shared by every command.
type deps struct {
	client *ai.OllamaClient
	loader *document.Loader
	cache  *store.TextCache
	s3     *storage.S3Client
	closed bool
}

// buildDeps wires the backend client and document loader. Redis and S3 are
// optional: a failure to reach them is logged and the feature is disabled.
func buildDeps(ctx context.Context, cfg cfgpkg.Config) *deps {
	d := &deps{client: ai.NewOllamaClient(cfg.Ollama.Host, cfg.Ollama.Timeout)}

	opts := document.Options{}
	if cfg.Cache.RedisURL != "" {
		cache, err := store.NewTextCache(cfg.Cache.RedisURL, cfg.Cache.KeyPrefix, cfg.Cache.TTL)
		if err != nil {
			log.Warn().Err(err).Msg("text cache disabled")
		} else {
			d.cache = cache
			opts.Cache = cache
		}
	}
	if cfg.Storage.Region != "" || cfg.Storage.Bucket != "" {
		s3c, err := storage.NewS3Client(ctx, cfg.Storage)
		if err != nil {
			log.Warn().Err(err).Msg("s3 documents disabled")
		} else {
			d.s3 = s3c
			opts.S3 = s3c
		}
	}
	d.loader = document.NewLoader(opts)
	return d
}

func (d *deps) Close() {
	if d.closed {
		return
	}
	d.closed = true
	if d.cache != nil {
		_ = d.cache.Close()
	}
}

func (d *deps) checker(cfg cfgpkg.Config, model string) *statuscheck.Checker {
	opts := statuscheck.Options{
		Ollama: d.client,
		Model:  model,
		MuPDF:  mupdf.NewExtractor().IsAvailable,
	}
	if d.cache != nil {
		opts.Redis = d.cache
	}
	if d.s3 != nil && cfg.Storage.Bucket != "" {
		opts.S3 = d.s3
	}
	return statuscheck.New(opts)
}

// serveMetrics starts the prometheus listener when addr is set and returns
// a shutdown func.
func serveMetrics(addr string) func() {
	if addr == "" {
		return func() {}
	}
	metrics.Init()
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Info().Msgf("metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
