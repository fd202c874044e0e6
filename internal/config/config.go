// SPDX-License-Identifier: MIT

// Package config loads reqwatch configuration with ENV > file > defaults
// precedence. Every knob has a REQWATCH_ environment variable; a YAML
// file is optional and parsed strictly so typos fail at startup instead
// of being silently ignored.
package config

import (
	"time"

	"github.com/reqwatch/reqwatch/internal/lint"
)

// Environment variable names. The file below and these keys configure
// the same fields; the environment wins.
const (
	EnvConfigFile = "REQWATCH_CONFIG"

	EnvListen        = "REQWATCH_LISTEN"
	EnvMetricsListen = "REQWATCH_METRICS_LISTEN"
	EnvDataDir       = "REQWATCH_DATA_DIR"
	EnvLogLevel      = "REQWATCH_LOG_LEVEL"
	EnvManifests     = "REQWATCH_MANIFESTS"
	EnvPinsFile      = "REQWATCH_PINS_FILE"

	EnvInterval    = "REQWATCH_INTERVAL"
	EnvWatch       = "REQWATCH_WATCH"
	EnvParallelism = "REQWATCH_PARALLELISM"

	EnvIndexURL     = "REQWATCH_INDEX_URL"
	EnvIndexCatalog = "REQWATCH_INDEX_CATALOG"
	EnvIndexTimeout = "REQWATCH_INDEX_TIMEOUT"
	EnvIndexRPS     = "REQWATCH_INDEX_RPS"
	EnvIndexBurst   = "REQWATCH_INDEX_BURST"

	EnvDisableRules = "REQWATCH_DISABLE_RULES"
	EnvLicenseAllow = "REQWATCH_LICENSE_ALLOW"
	EnvLicenseDeny  = "REQWATCH_LICENSE_DENY"

	EnvAPIToken       = "REQWATCH_API_TOKEN"
	EnvAllowAnonymous = "REQWATCH_ALLOW_ANONYMOUS"
	EnvCORSOrigins    = "REQWATCH_CORS_ORIGINS"
	EnvRateLimit      = "REQWATCH_RATE_LIMIT"
	EnvMaxLintBody    = "REQWATCH_MAX_LINT_BODY"

	EnvStoreBackend = "REQWATCH_STORE_BACKEND"

	EnvOTELEnabled     = "REQWATCH_OTEL_ENABLED"
	EnvOTELEndpoint    = "REQWATCH_OTEL_ENDPOINT"
	EnvOTELProtocol    = "REQWATCH_OTEL_PROTOCOL"
	EnvOTELSampleRatio = "REQWATCH_OTEL_SAMPLE_RATIO"
)

// Config is the resolved daemon configuration.
type Config struct {
	Listen        string // API listen address
	MetricsListen string // Prometheus listener; empty disables it
	DataDir       string // reports and store live under here
	LogLevel      string

	Manifests []string // manifest files to audit
	PinsFile  string   // optional companion pins file

	Audit     AuditConfig
	Index     IndexConfig
	Lint      LintConfig
	Licenses  LicensesConfig
	API       APIConfig
	Store     StoreConfig
	Telemetry TelemetryConfig
}

// AuditConfig drives the background audit loop.
type AuditConfig struct {
	Interval    time.Duration // 0 disables the scheduler
	Watch       bool          // re-audit on manifest file changes
	Parallelism int           // concurrent manifest audits
}

// IndexConfig selects the package-metadata source. A catalog file wins
// over the HTTP index; with neither configured, index-backed rules are
// skipped.
type IndexConfig struct {
	URL     string
	Catalog string
	Timeout time.Duration
	MaxRPS  float64
	Burst   int
}

// LintConfig carries per-rule overrides keyed by rule id.
type LintConfig struct {
	Rules map[string]RuleOverride `yaml:"rules"`
}

// RuleOverride disables a rule or rebinds its severity.
type RuleOverride struct {
	Disabled bool   `yaml:"disabled"`
	Severity string `yaml:"severity"`
}

// LicensesConfig is the license policy applied to audit reports.
type LicensesConfig struct {
	Allow []string
	Deny  []string
}

// APIConfig covers the HTTP surface. With no token configured the API
// refuses to start unless AllowAnonymous is set explicitly.
type APIConfig struct {
	Token          string
	AllowAnonymous bool
	CORSOrigins    []string
	RateLimit      int   // requests per minute per client IP; 0 disables
	MaxLintBody    int64 // request body cap for stateless lint
}

// StoreConfig selects the run-history backend.
type StoreConfig struct {
	Backend string
}

// TelemetryConfig configures trace export.
type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string
	Protocol    string // "grpc" or "http"
	SampleRatio float64
}

// Default returns the built-in configuration. Note that the default is
// not valid on its own: an API token (or explicit anonymous access) has
// to come from the environment or the file.
func Default() Config {
	return Config{
		Listen:        ":8080",
		MetricsListen: ":9090",
		DataDir:       "data",
		LogLevel:      "info",
		Manifests:     []string{"requirements.txt"},
		Audit: AuditConfig{
			Interval:    time.Hour,
			Watch:       true,
			Parallelism: 4,
		},
		Index: IndexConfig{
			URL:     "https://pypi.org",
			Timeout: 15 * time.Second,
			MaxRPS:  5,
			Burst:   10,
		},
		API: APIConfig{
			RateLimit:   120,
			MaxLintBody: 1 << 20,
		},
		Store: StoreConfig{
			Backend: "memory",
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			SampleRatio: 1.0,
		},
	}
}

// LintOverrides converts the configured rule overrides into the lint
// engine's override set. Validate has vetted ids and severities already;
// unparseable severities are skipped here rather than guessed.
func (c Config) LintOverrides() map[string]lint.Override {
	if len(c.Lint.Rules) == 0 {
		return nil
	}
	out := make(map[string]lint.Override, len(c.Lint.Rules))
	for id, ov := range c.Lint.Rules {
		o := lint.Override{Disabled: ov.Disabled}
		if ov.Severity != "" {
			if sev, err := lint.ParseSeverity(ov.Severity); err == nil {
				o.Severity = &sev
			}
		}
		out[id] = o
	}
	return out
}
