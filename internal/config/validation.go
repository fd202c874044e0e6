// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"time"

	"github.com/reqwatch/reqwatch/internal/lint"
	platformnet "github.com/reqwatch/reqwatch/internal/platform/net"
	"github.com/reqwatch/reqwatch/internal/validate"
)

// Validate checks the assembled configuration and returns a
// validate.ValidationError describing every problem at once.
func Validate(cfg *Config) error {
	v := validate.New()

	v.HostPort("listen", cfg.Listen)
	if cfg.MetricsListen != "" {
		v.HostPort("metrics_listen", cfg.MetricsListen)
	}
	v.Directory("data_dir", cfg.DataDir, false)
	v.OneOf("log_level", cfg.LogLevel, []string{"trace", "debug", "info", "warn", "error"})

	if len(cfg.Manifests) == 0 {
		v.AddError("manifests", "at least one manifest path is required", cfg.Manifests)
	}
	for i, m := range cfg.Manifests {
		v.NotEmpty(fmt.Sprintf("manifests[%d]", i), m)
	}

	if cfg.Audit.Interval != 0 && cfg.Audit.Interval < 10*time.Second {
		v.AddError("audit.interval", "must be 0 (disabled) or at least 10s", cfg.Audit.Interval.String())
	}
	v.Range("audit.parallelism", cfg.Audit.Parallelism, 1, 32)

	if cfg.Index.URL != "" {
		if _, ok := platformnet.ParseDirectHTTPURL(cfg.Index.URL); !ok {
			v.AddError("index.url",
				"must be a direct http(s) URL without credentials, query, or fragment",
				platformnet.SanitizeURL(cfg.Index.URL))
		}
	}
	if cfg.Index.Catalog != "" {
		v.File("index.catalog", cfg.Index.Catalog)
	}
	if cfg.Index.Timeout <= 0 || cfg.Index.Timeout > 2*time.Minute {
		v.AddError("index.timeout", "must be between 1ms and 2m", cfg.Index.Timeout.String())
	}
	if cfg.Index.MaxRPS <= 0 || cfg.Index.MaxRPS > 100 {
		v.AddError("index.rps", "must be between 0 (exclusive) and 100", cfg.Index.MaxRPS)
	}
	v.Range("index.burst", cfg.Index.Burst, 1, 1000)

	validateRules(v, cfg.Lint.Rules)

	if cfg.API.Token == "" && !cfg.API.AllowAnonymous {
		v.AddError("api.token", "required unless allow_anonymous is enabled", "")
	}
	v.NonNegative("api.rate_limit", cfg.API.RateLimit)
	if cfg.API.MaxLintBody <= 0 || cfg.API.MaxLintBody > 64<<20 {
		v.AddError("api.max_lint_body", "must be between 1 byte and 64MiB", cfg.API.MaxLintBody)
	}

	v.OneOf("store.backend", cfg.Store.Backend, []string{"memory", "badger", "sqlite"})

	if cfg.Telemetry.Enabled {
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.OneOf("telemetry.protocol", cfg.Telemetry.Protocol, []string{"grpc", "http"})
	}
	v.Ratio("telemetry.sample_ratio", cfg.Telemetry.SampleRatio)

	return v.Err()
}

// validateRules checks that every override names a known rule and that
// severity overrides parse.
func validateRules(v *validate.Validator, overrides map[string]RuleOverride) {
	known := make(map[string]bool)
	for _, id := range lint.RuleIDs() {
		known[id] = true
	}
	for id, ov := range overrides {
		if !known[id] {
			v.AddError("lint.rules", fmt.Sprintf("unknown rule %q", id), id)
		}
		if ov.Severity != "" {
			if _, err := lint.ParseSeverity(ov.Severity); err != nil {
				v.AddError(fmt.Sprintf("lint.rules[%s].severity", id), err.Error(), ov.Severity)
			}
		}
	}
}
