// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"net"

	"github.com/ManuGH/lticast/internal/validate"
)

// Validate validates a AppConfig using the centralized validation package.
// The LTI workflow settings are checked when they are applied, so a daemon
// without them still starts and rejects uploads.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Directory("dataDir", cfg.DataDir, false)
	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError("logLevel", "must be one of trace, debug, info, warn, error", cfg.LogLevel)
	}

	v.ListenAddr("api.listenAddr", cfg.API.ListenAddr)
	v.NotEmpty("api.jwtSecret", cfg.API.JWTSecret)
	v.Positive("api.rateLimit.rps", cfg.API.RateLimit.RPS)
	v.Positive("api.rateLimit.burst", cfg.API.RateLimit.Burst)
	v.Positive("api.uploadLimit.rps", cfg.API.UploadLimit.RPS)
	v.Positive("api.uploadLimit.burst", cfg.API.UploadLimit.Burst)
	if cfg.API.MaxUploadBytes <= 0 {
		v.AddError("api.maxUploadBytes", fmt.Sprintf("value must be positive, got %d", cfg.API.MaxUploadBytes), cfg.API.MaxUploadBytes)
	}

	v.NotEmpty("lti.organization", cfg.LTI.Organization)

	if cfg.Cache.RedisAddr != "" {
		v.Custom("cache.redisAddr", cfg.Cache.RedisAddr, func(val interface{}) error {
			host, port, err := net.SplitHostPort(val.(string))
			if err != nil {
				return fmt.Errorf("must be host:port: %v", err)
			}
			if host == "" || port == "" {
				return fmt.Errorf("must be host:port")
			}
			return nil
		})
	}
	v.Range("cache.redisDb", cfg.Cache.RedisDB, 0, 15)
	if cfg.Cache.TTL < 0 {
		v.AddError("cache.ttl", "value cannot be negative", cfg.Cache.TTL)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	if cfg.Metrics.ListenAddr != "" {
		v.ListenAddr("metrics.listenAddr", cfg.Metrics.ListenAddr)
	}

	return v.Err()
}
