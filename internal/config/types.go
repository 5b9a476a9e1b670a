// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the resolved daemon configuration.
type AppConfig struct {
	DataDir   string          `yaml:"dataDir"`
	LogLevel  string          `yaml:"logLevel"`
	Catalogs  string          `yaml:"catalogs"`
	API       APIConfig       `yaml:"api"`
	LTI       LTIConfig       `yaml:"lti"`
	Cache     CacheConfig     `yaml:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	ListenAddr     string    `yaml:"listenAddr"`
	JWTSecret      string    `yaml:"jwtSecret"`
	JWTIssuer      string    `yaml:"jwtIssuer"`
	RateLimit      RateLimit `yaml:"rateLimit"`
	UploadLimit    RateLimit `yaml:"uploadLimit"`
	MaxUploadBytes int64     `yaml:"maxUploadBytes"`
}

// RateLimit is a token bucket: RPS refill rate and Burst capacity.
type RateLimit struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

// LTIConfig carries the workflow settings applied to uploads.
type LTIConfig struct {
	Workflow string `yaml:"workflow"`
	// WorkflowConfiguration is a JSON object of workflow parameters.
	WorkflowConfiguration string `yaml:"workflowConfiguration"`
	RetractWorkflowID     string `yaml:"retractWorkflowId"`
	Organization          string `yaml:"organization"`
}

// Properties renders the settings as the property map the LTI service
// accepts. Unset values are omitted.
func (c LTIConfig) Properties() map[string]string {
	props := make(map[string]string, 3)
	if c.Workflow != "" {
		props["workflow"] = c.Workflow
	}
	if c.WorkflowConfiguration != "" {
		props["workflow-configuration"] = c.WorkflowConfiguration
	}
	if c.RetractWorkflowID != "" {
		props["retract-workflow-id"] = c.RetractWorkflowID
	}
	return props
}

// CacheConfig configures the series lookup cache. An empty RedisAddr
// selects the in-process cache.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDb"`
	TTL           time.Duration `yaml:"ttl"`
}

// TelemetryConfig configures OTLP tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// MetricsConfig configures the Prometheus listener. An empty ListenAddr
// serves /metrics on the API listener.
type MetricsConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}
