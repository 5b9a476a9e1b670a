// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ManuGH/lticast/internal/api"
	"github.com/ManuGH/lticast/internal/config"
	"github.com/ManuGH/lticast/internal/daemon"
	xglog "github.com/ManuGH/lticast/internal/log"
	"github.com/ManuGH/lticast/internal/lti"
	"github.com/ManuGH/lticast/internal/security"
	"github.com/ManuGH/lticast/internal/telemetry"
	"github.com/ManuGH/lticast/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the LTI HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

// ltiApplier pushes the LTI section of a configuration into svc. A
// configuration without a workflow is accepted so the daemon still serves
// reads and deletes; when a workflow was active before, it stays active.
func ltiApplier(svc *lti.Service, logger zerolog.Logger) config.ApplyFunc {
	return func(next config.AppConfig) error {
		err := svc.Updated(next.LTI.Properties())
		if errors.Is(err, lti.ErrNotConfigured) && next.LTI.Workflow == "" {
			if prev := svc.Settings(); prev.Configured() {
				logger.Warn().
					Str(xglog.FieldEvent, "lti.workflow_removed").
					Str("workflow", prev.Workflow).
					Msg("lti.workflow was removed; the previous workflow stays active until restart")
			}
			return nil
		}
		return err
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	logger := xglog.WithComponent("daemon")

	cfg, loader, err := opts.load()
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", opts.resolveConfigPath()).
			Msg("failed to load configuration")
		return err
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: "lticast",
		Version: version.Version,
	})
	logger = xglog.WithComponent("daemon")

	source := "env+defaults"
	if loader.Path() != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", loader.Path()).
		Str("data_dir", cfg.DataDir).
		Msg("configuration loaded")

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "lticast",
		ServiceVersion: version.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	be, err := buildBackend(ctx, cfg)
	if err != nil {
		_ = provider.Shutdown(context.WithoutCancel(ctx))
		return err
	}

	applyLTI := ltiApplier(be.service, logger)
	if err := applyLTI(cfg); err != nil {
		_ = be.close()
		_ = provider.Shutdown(context.WithoutCancel(ctx))
		return fmt.Errorf("apply lti settings: %w", err)
	}
	workflowID := ""
	if settings := be.service.Settings(); settings.Configured() {
		workflowID = settings.Workflow
	} else {
		logger.Warn().
			Str("event", "lti.unconfigured").
			Msg("no upload workflow configured; uploads are rejected until lti.workflow is set")
	}

	holder := config.NewHolder(cfg, loader)
	holder.OnReload(applyLTI)

	auth, err := security.NewAuthenticator(cfg.API.JWTSecret, cfg.API.JWTIssuer)
	if err != nil {
		_ = be.close()
		_ = provider.Shutdown(context.WithoutCancel(ctx))
		return err
	}

	serverOpts := []api.ServerOption{
		api.WithReadyCheck("stores", be.ready),
	}
	if cfg.Telemetry.Enabled {
		serverOpts = append(serverOpts, api.WithTracing("lticast-api"))
	}
	if cfg.Metrics.ListenAddr == "" {
		serverOpts = append(serverOpts, api.WithMetricsEndpoint())
	}
	srv := api.New(cfg.API, be.service, auth.WithDefaultOrganization(cfg.LTI.Organization), serverOpts...)

	deps := daemon.Deps{
		Logger:     logger,
		APIHandler: srv.Handler(),
	}
	if cfg.Metrics.ListenAddr != "" {
		deps.MetricsHandler = promhttp.Handler()
		deps.MetricsAddr = cfg.Metrics.ListenAddr
	}

	mgr, err := daemon.NewManager(daemon.DefaultServerConfig(cfg.API.ListenAddr), deps)
	if err != nil {
		_ = be.close()
		_ = provider.Shutdown(context.WithoutCancel(ctx))
		return err
	}
	mgr.RegisterShutdownHook("stores", func(context.Context) error { return be.close() })
	mgr.RegisterShutdownHook("telemetry", provider.Shutdown)

	logger.Info().
		Str("event", "startup").
		Str("version", version.String()).
		Str("addr", cfg.API.ListenAddr).
		Str("workflow", workflowID).
		Msg("starting lticast")

	if err := daemon.NewApp(logger, mgr, holder).Run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "daemon.failed").Msg("daemon failed")
		return err
	}
	logger.Info().Msg("server exiting")
	return nil
}
