// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader assembles the effective configuration. Precedence is
// environment > config file > defaults; the merged result is validated
// before it is handed out.
type Loader struct {
	configPath string
}

// NewLoader returns a loader for the given config file path. An empty
// path skips the file layer entirely.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load builds and validates the effective configuration.
func (l *Loader) Load() (*Config, error) {
	return l.load(false)
}

// LoadCLI is Load for one-shot command-line runs. No HTTP surface
// starts in that mode, so a missing API token is not an error.
func (l *Loader) LoadCLI() (*Config, error) {
	return l.load(true)
}

func (l *Loader) load(cli bool) (*Config, error) {
	cfg := Default()

	if l.configPath != "" {
		fileCfg, err := loadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", l.configPath, err)
		}
		if err := mergeFile(&cfg, fileCfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", l.configPath, err)
		}
	}

	applyEnv(&cfg)

	if cli && cfg.API.Token == "" {
		cfg.API.AllowAnonymous = true
	}

	absData, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	cfg.DataDir = absData

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// fileConfig mirrors the YAML document. Scalars are pointers so absent
// keys are distinguishable from zero values; durations travel as
// strings because yaml.v3 has no native time.Duration support.
type fileConfig struct {
	Listen        *string  `yaml:"listen"`
	MetricsListen *string  `yaml:"metrics_listen"`
	DataDir       *string  `yaml:"data_dir"`
	LogLevel      *string  `yaml:"log_level"`
	Manifests     []string `yaml:"manifests"`
	PinsFile      *string  `yaml:"pins_file"`

	Audit struct {
		Interval    *string `yaml:"interval"`
		Watch       *bool   `yaml:"watch"`
		Parallelism *int    `yaml:"parallelism"`
	} `yaml:"audit"`

	Index struct {
		URL     *string  `yaml:"url"`
		Catalog *string  `yaml:"catalog"`
		Timeout *string  `yaml:"timeout"`
		RPS     *float64 `yaml:"rps"`
		Burst   *int     `yaml:"burst"`
	} `yaml:"index"`

	Lint struct {
		Rules map[string]RuleOverride `yaml:"rules"`
	} `yaml:"lint"`

	Licenses struct {
		Allow []string `yaml:"allow"`
		Deny  []string `yaml:"deny"`
	} `yaml:"licenses"`

	API struct {
		Token          *string  `yaml:"token"`
		AllowAnonymous *bool    `yaml:"allow_anonymous"`
		CORSOrigins    []string `yaml:"cors_origins"`
		RateLimit      *int     `yaml:"rate_limit"`
		MaxLintBody    *int64   `yaml:"max_lint_body"`
	} `yaml:"api"`

	Store struct {
		Backend *string `yaml:"backend"`
	} `yaml:"store"`

	Telemetry struct {
		Enabled     *bool    `yaml:"enabled"`
		Endpoint    *string  `yaml:"endpoint"`
		Protocol    *string  `yaml:"protocol"`
		SampleRatio *float64 `yaml:"sample_ratio"`
	} `yaml:"telemetry"`
}

// loadFile reads and strictly decodes a YAML config file. Unknown keys
// and trailing documents are errors so typos fail loudly.
func loadFile(path string) (*fileConfig, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config file extension %q (expected .yaml or .yml)", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var fc fileConfig
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return &fc, nil
		}
		return nil, err
	}
	if err := dec.Decode(new(fileConfig)); !errors.Is(err, io.EOF) {
		return nil, errors.New("config file contains multiple documents or trailing content")
	}
	return &fc, nil
}

// mergeFile overlays the file layer onto cfg. Only keys present in the
// file change anything.
func mergeFile(cfg *Config, fc *fileConfig) error {
	if fc.Listen != nil {
		cfg.Listen = *fc.Listen
	}
	if fc.MetricsListen != nil {
		cfg.MetricsListen = *fc.MetricsListen
	}
	if fc.DataDir != nil {
		cfg.DataDir = *fc.DataDir
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.Manifests != nil {
		cfg.Manifests = fc.Manifests
	}
	if fc.PinsFile != nil {
		cfg.PinsFile = *fc.PinsFile
	}

	if fc.Audit.Interval != nil {
		d, err := time.ParseDuration(*fc.Audit.Interval)
		if err != nil {
			return fmt.Errorf("audit.interval: %w", err)
		}
		cfg.Audit.Interval = d
	}
	if fc.Audit.Watch != nil {
		cfg.Audit.Watch = *fc.Audit.Watch
	}
	if fc.Audit.Parallelism != nil {
		cfg.Audit.Parallelism = *fc.Audit.Parallelism
	}

	if fc.Index.URL != nil {
		cfg.Index.URL = *fc.Index.URL
	}
	if fc.Index.Catalog != nil {
		cfg.Index.Catalog = *fc.Index.Catalog
	}
	if fc.Index.Timeout != nil {
		d, err := time.ParseDuration(*fc.Index.Timeout)
		if err != nil {
			return fmt.Errorf("index.timeout: %w", err)
		}
		cfg.Index.Timeout = d
	}
	if fc.Index.RPS != nil {
		cfg.Index.MaxRPS = *fc.Index.RPS
	}
	if fc.Index.Burst != nil {
		cfg.Index.Burst = *fc.Index.Burst
	}

	if fc.Lint.Rules != nil {
		if cfg.Lint.Rules == nil {
			cfg.Lint.Rules = make(map[string]RuleOverride, len(fc.Lint.Rules))
		}
		for id, ov := range fc.Lint.Rules {
			cfg.Lint.Rules[id] = ov
		}
	}

	if fc.Licenses.Allow != nil {
		cfg.Licenses.Allow = fc.Licenses.Allow
	}
	if fc.Licenses.Deny != nil {
		cfg.Licenses.Deny = fc.Licenses.Deny
	}

	if fc.API.Token != nil {
		cfg.API.Token = *fc.API.Token
	}
	if fc.API.AllowAnonymous != nil {
		cfg.API.AllowAnonymous = *fc.API.AllowAnonymous
	}
	if fc.API.CORSOrigins != nil {
		cfg.API.CORSOrigins = fc.API.CORSOrigins
	}
	if fc.API.RateLimit != nil {
		cfg.API.RateLimit = *fc.API.RateLimit
	}
	if fc.API.MaxLintBody != nil {
		cfg.API.MaxLintBody = *fc.API.MaxLintBody
	}

	if fc.Store.Backend != nil {
		cfg.Store.Backend = *fc.Store.Backend
	}

	if fc.Telemetry.Enabled != nil {
		cfg.Telemetry.Enabled = *fc.Telemetry.Enabled
	}
	if fc.Telemetry.Endpoint != nil {
		cfg.Telemetry.Endpoint = *fc.Telemetry.Endpoint
	}
	if fc.Telemetry.Protocol != nil {
		cfg.Telemetry.Protocol = *fc.Telemetry.Protocol
	}
	if fc.Telemetry.SampleRatio != nil {
		cfg.Telemetry.SampleRatio = *fc.Telemetry.SampleRatio
	}
	return nil
}

// applyEnv overlays environment variables onto cfg. Every key uses the
// merged value as its default so unset variables change nothing.
func applyEnv(cfg *Config) {
	cfg.Listen = ParseString(EnvListen, cfg.Listen)
	cfg.MetricsListen = ParseString(EnvMetricsListen, cfg.MetricsListen)
	cfg.DataDir = ParseString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	cfg.Manifests = ParseStringSlice(EnvManifests, cfg.Manifests)
	cfg.PinsFile = ParseString(EnvPinsFile, cfg.PinsFile)

	cfg.Audit.Interval = ParseDuration(EnvInterval, cfg.Audit.Interval)
	cfg.Audit.Watch = ParseBool(EnvWatch, cfg.Audit.Watch)
	cfg.Audit.Parallelism = ParseInt(EnvParallelism, cfg.Audit.Parallelism)

	cfg.Index.URL = ParseString(EnvIndexURL, cfg.Index.URL)
	cfg.Index.Catalog = ParseString(EnvIndexCatalog, cfg.Index.Catalog)
	cfg.Index.Timeout = ParseDuration(EnvIndexTimeout, cfg.Index.Timeout)
	cfg.Index.MaxRPS = ParseFloat(EnvIndexRPS, cfg.Index.MaxRPS)
	cfg.Index.Burst = ParseInt(EnvIndexBurst, cfg.Index.Burst)

	for _, id := range ParseStringSlice(EnvDisableRules, nil) {
		if cfg.Lint.Rules == nil {
			cfg.Lint.Rules = make(map[string]RuleOverride)
		}
		ov := cfg.Lint.Rules[id]
		ov.Disabled = true
		cfg.Lint.Rules[id] = ov
	}

	cfg.Licenses.Allow = ParseStringSlice(EnvLicenseAllow, cfg.Licenses.Allow)
	cfg.Licenses.Deny = ParseStringSlice(EnvLicenseDeny, cfg.Licenses.Deny)

	cfg.API.Token = ParseString(EnvAPIToken, cfg.API.Token)
	cfg.API.AllowAnonymous = ParseBool(EnvAllowAnonymous, cfg.API.AllowAnonymous)
	cfg.API.CORSOrigins = ParseStringSlice(EnvCORSOrigins, cfg.API.CORSOrigins)
	cfg.API.RateLimit = ParseInt(EnvRateLimit, cfg.API.RateLimit)
	cfg.API.MaxLintBody = int64(ParseInt(EnvMaxLintBody, int(cfg.API.MaxLintBody)))

	cfg.Store.Backend = ParseString(EnvStoreBackend, cfg.Store.Backend)

	cfg.Telemetry.Enabled = ParseBool(EnvOTELEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = ParseString(EnvOTELEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.Protocol = ParseString(EnvOTELProtocol, cfg.Telemetry.Protocol)
	cfg.Telemetry.SampleRatio = ParseFloat(EnvOTELSampleRatio, cfg.Telemetry.SampleRatio)
}
