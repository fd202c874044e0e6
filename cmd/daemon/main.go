// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reqwatch/reqwatch/internal/config"
	"github.com/reqwatch/reqwatch/internal/daemon"
	"github.com/reqwatch/reqwatch/internal/health"
	"github.com/reqwatch/reqwatch/internal/log"
	platformnet "github.com/reqwatch/reqwatch/internal/platform/net"
	"github.com/reqwatch/reqwatch/internal/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		os.Exit(runHealthcheckCLI(os.Args[2:]))
	}
	if len(os.Args) > 1 && os.Args[1] == "storage" {
		os.Exit(runStorageCLI(os.Args[2:]))
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("reqwatchd %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	logger := log.WithComponent("daemon")

	ctx, stop := daemon.WaitForShutdown()
	defer stop()

	// Config path precedence:
	// - Explicit via --config or REQWATCH_CONFIG
	// - Otherwise auto-load <data dir>/config.yaml if it exists
	explicitConfigPath := strings.TrimSpace(*configPath)
	if explicitConfigPath == "" {
		explicitConfigPath = strings.TrimSpace(os.Getenv(config.EnvConfigFile))
	}
	effectiveConfigPath := explicitConfigPath
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString(config.EnvDataDir, "data"))
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectiveConfigPath = autoPath
		}
	}

	// Load configuration with precedence: ENV > File > Defaults
	loader := config.NewLoader(effectiveConfigPath)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	// The global logger is wired up at init; only the level is
	// adjustable once the resolved configuration names one.
	log.SetLevel(cfg.LogLevel)

	if explicitConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", explicitConfigPath).
			Msg("loaded configuration from file")
	} else if effectiveConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file(auto)").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("Startup checks failed. Please verify configuration and permissions.")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", cfg.Listen).
		Msg("starting reqwatch")

	// Log key configuration
	logger.Info().Msgf("→ Manifests: %s", strings.Join(cfg.Manifests, ", "))
	if cfg.PinsFile != "" {
		logger.Info().Msgf("→ Pins: %s", cfg.PinsFile)
	}
	switch {
	case cfg.Index.Catalog != "":
		logger.Info().Msgf("→ Index: catalog %s", cfg.Index.Catalog)
	case cfg.Index.URL != "":
		logger.Info().Msgf("→ Index: %s (%.0f req/s)", platformnet.SanitizeURL(cfg.Index.URL), cfg.Index.MaxRPS)
	default:
		logger.Warn().Msg("→ Index: not configured, index-backed checks are skipped")
	}
	if len(cfg.Licenses.Allow) > 0 || len(cfg.Licenses.Deny) > 0 {
		logger.Info().Msgf("→ License policy: %d allowed, %d denied", len(cfg.Licenses.Allow), len(cfg.Licenses.Deny))
	}
	if cfg.Audit.Interval > 0 {
		logger.Info().Msgf("→ Audit: every %s (watch: %v)", cfg.Audit.Interval, cfg.Audit.Watch)
	} else {
		logger.Info().Msgf("→ Audit: manual triggers only (watch: %v)", cfg.Audit.Watch)
	}
	logger.Info().Msgf("→ Store: %s", cfg.Store.Backend)
	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)
	if cfg.API.Token != "" {
		logger.Info().Msg("→ API token: configured")
	} else {
		logger.Warn().
			Str("security", "weak").
			Msg("→ API token: NOT configured (anonymous access). Set REQWATCH_API_TOKEN for security.")
	}

	// Hot reload support: watch the config file and allow SIGHUP-triggered
	// reload.
	holder := config.NewHolder(cfg, config.NewLoader(effectiveConfigPath), effectiveConfigPath)

	d, err := daemon.New(ctx, daemon.Options{
		Version:        version.Version,
		Holder:         holder,
		MetricsHandler: promhttp.Handler(),
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.init_failed").
			Msg("failed to initialize daemon")
	}

	// Blocks until shutdown.
	if err := d.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon app failed")
	}

	logger.Info().Msg("server exiting")
}
