// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/lticast/internal/log"
)

// Environment keys. Every key overrides the matching file setting.
const (
	EnvDataDir               = "LTICAST_DATA_DIR"
	EnvLogLevel              = "LTICAST_LOG_LEVEL"
	EnvCatalogs              = "LTICAST_CATALOGS"
	EnvListenAddr            = "LTICAST_LISTEN_ADDR"
	EnvJWTSecret             = "LTICAST_JWT_SECRET"
	EnvJWTIssuer             = "LTICAST_JWT_ISSUER"
	EnvRateLimitRPS          = "LTICAST_RATE_LIMIT_RPS"
	EnvRateLimitBurst        = "LTICAST_RATE_LIMIT_BURST"
	EnvUploadRPS             = "LTICAST_UPLOAD_RPS"
	EnvUploadBurst           = "LTICAST_UPLOAD_BURST"
	EnvMaxUploadBytes        = "LTICAST_MAX_UPLOAD_BYTES"
	EnvWorkflow              = "LTICAST_WORKFLOW"
	EnvWorkflowConfiguration = "LTICAST_WORKFLOW_CONFIGURATION"
	EnvRetractWorkflowID     = "LTICAST_RETRACT_WORKFLOW_ID"
	EnvOrganization          = "LTICAST_ORGANIZATION"
	EnvRedisAddr             = "LTICAST_REDIS_ADDR"
	EnvRedisPassword         = "LTICAST_REDIS_PASSWORD"
	EnvRedisDB               = "LTICAST_REDIS_DB"
	EnvCacheTTL              = "LTICAST_CACHE_TTL"
	EnvTelemetryEnabled      = "LTICAST_TELEMETRY_ENABLED"
	EnvOTLPExporter          = "LTICAST_OTLP_EXPORTER"
	EnvOTLPEndpoint          = "LTICAST_OTLP_ENDPOINT"
	EnvTraceSampling         = "LTICAST_TRACE_SAMPLING"
	EnvMetricsAddr           = "LTICAST_METRICS_ADDR"
)

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "secret") || strings.Contains(k, "password") || strings.Contains(k, "token")
}

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	switch {
	case !exists || value == "":
		return defaultValue
	case isSensitive(key):
		logger.Debug().
			Str("key", key).
			Str("source", "environment").
			Bool("sensitive", true).
			Msg("using environment variable")
	default:
		logger.Debug().
			Str("key", key).
			Str("value", value).
			Str("source", "environment").
			Msg("using environment variable")
	}
	return value
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	return i
}

// ParseInt64 is ParseInt for byte sizes and other 64-bit values.
func ParseInt64(key string, defaultValue int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int64("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	return i
}

// ParseDuration reads a duration from environment variable in Go duration format (e.g. "5s").
// It falls back to default on parse errors or empty variables.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	return d
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	logger := log.WithComponent("config")
	logger.Warn().
		Str("key", key).
		Str("value", v).
		Bool("default", defaultValue).
		Msg("invalid boolean in environment variable, using default")
	return defaultValue
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Float64("default", defaultValue).
			Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	return f
}

// mergeEnv applies environment overrides on top of cfg.
func mergeEnv(cfg *AppConfig) {
	cfg.DataDir = ParseString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	cfg.Catalogs = ParseString(EnvCatalogs, cfg.Catalogs)

	cfg.API.ListenAddr = ParseString(EnvListenAddr, cfg.API.ListenAddr)
	cfg.API.JWTSecret = ParseString(EnvJWTSecret, cfg.API.JWTSecret)
	cfg.API.JWTIssuer = ParseString(EnvJWTIssuer, cfg.API.JWTIssuer)
	cfg.API.RateLimit.RPS = ParseInt(EnvRateLimitRPS, cfg.API.RateLimit.RPS)
	cfg.API.RateLimit.Burst = ParseInt(EnvRateLimitBurst, cfg.API.RateLimit.Burst)
	cfg.API.UploadLimit.RPS = ParseInt(EnvUploadRPS, cfg.API.UploadLimit.RPS)
	cfg.API.UploadLimit.Burst = ParseInt(EnvUploadBurst, cfg.API.UploadLimit.Burst)
	cfg.API.MaxUploadBytes = ParseInt64(EnvMaxUploadBytes, cfg.API.MaxUploadBytes)

	cfg.LTI.Workflow = ParseString(EnvWorkflow, cfg.LTI.Workflow)
	cfg.LTI.WorkflowConfiguration = ParseString(EnvWorkflowConfiguration, cfg.LTI.WorkflowConfiguration)
	cfg.LTI.RetractWorkflowID = ParseString(EnvRetractWorkflowID, cfg.LTI.RetractWorkflowID)
	cfg.LTI.Organization = ParseString(EnvOrganization, cfg.LTI.Organization)

	cfg.Cache.RedisAddr = ParseString(EnvRedisAddr, cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = ParseString(EnvRedisPassword, cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = ParseInt(EnvRedisDB, cfg.Cache.RedisDB)
	cfg.Cache.TTL = ParseDuration(EnvCacheTTL, cfg.Cache.TTL)

	cfg.Telemetry.Enabled = ParseBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(EnvOTLPExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(EnvOTLPEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(EnvTraceSampling, cfg.Telemetry.SamplingRate)

	cfg.Metrics.ListenAddr = ParseString(EnvMetricsAddr, cfg.Metrics.ListenAddr)
}
