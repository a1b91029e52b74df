package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/porticus-lab/go-page-ocr/internal/artifact"
	"github.com/porticus-lab/go-page-ocr/internal/config"
	"github.com/porticus-lab/go-page-ocr/internal/jobs"
	"github.com/porticus-lab/go-page-ocr/internal/log"
	"github.com/porticus-lab/go-page-ocr/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP job API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	logger := log.Named("serve")

	engine, err := a.newOCR(ctx)
	if err != nil {
		return err
	}
	capturer, err := a.newCapturer()
	if err != nil {
		return err
	}
	defer capturer.Close()

	store, err := newJobStore(ctx, cfg.Jobs)
	if err != nil {
		return err
	}
	defer store.Close()

	artifacts, closeArtifacts, err := newArtifactStore(ctx, cfg.Artifacts)
	if err != nil {
		return err
	}
	defer closeArtifacts()

	pipeline := jobs.NewPipeline(capturer, engine, artifacts, log.Named("pipeline"))
	sup, err := jobs.NewSupervisor(store, pipeline, jobs.Config{
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
		Retention:     cfg.Jobs.Retention,
		Logger:        log.Named("jobs"),
	})
	if err != nil {
		return err
	}
	// Running jobs finish before the browser and stores are closed.
	defer sup.Close()

	logger.Info("starting",
		zap.String("backend", cfg.Vision.Backend),
		zap.String("model", engine.Model()),
		zap.String("job_store", cfg.Jobs.Store),
		zap.String("artifact_store", cfg.Artifacts.Store),
		zap.Int("max_jobs", cfg.Jobs.MaxConcurrent))

	srv := server.New(sup, server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          log.Named("server"),
	})
	return srv.ListenAndServe(ctx)
}

func newJobStore(ctx context.Context, cfg config.JobsConfig) (jobs.Store, error) {
	switch cfg.Store {
	case "redis":
		s, err := jobs.NewRedisStore(ctx, jobs.RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return jobs.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("invalid job store: %s", cfg.Store)
	}
}

// newArtifactStore returns the configured store and a function releasing
// its resources.
func newArtifactStore(ctx context.Context, cfg config.ArtifactConfig) (artifact.Store, func(), error) {
	switch cfg.Store {
	case "none":
		return artifact.Nop{}, func() {}, nil
	case "fs":
		d, err := artifact.NewDir(cfg.Dir, log.Named("artifact"))
		if err != nil {
			return nil, nil, err
		}
		return d, func() {}, nil
	case "gcs":
		g, err := artifact.NewGCS(ctx, cfg.Bucket, cfg.Prefix, log.Named("artifact"))
		if err != nil {
			return nil, nil, err
		}
		return g, func() { g.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("invalid artifact store: %s", cfg.Store)
	}
}
