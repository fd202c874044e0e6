// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/reqwatch/reqwatch/internal/config"
	"github.com/reqwatch/reqwatch/internal/log"
)

// PerformStartupChecks validates the environment and dependencies before starting the daemon.
func PerformStartupChecks(_ context.Context, cfg *config.Config) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("Running pre-flight startup checks...")

	if err := checkDataDir(logger, cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}

	if err := checkTargetedValidations(logger, cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Info().Msg("✅ All startup checks passed")
	return nil
}

func checkDataDir(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	// Check write permissions by creating a temp file
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("✓ Data directory is writable")
	return nil
}

// checkTargetedValidations performs security and runtime-critical validations
func checkTargetedValidations(logger zerolog.Logger, cfg *config.Config) error {
	// a. Listen address (parseable)
	if cfg.Listen != "" {
		_, port, err := net.SplitHostPort(cfg.Listen)
		if err != nil {
			return fmt.Errorf("invalid API listen address %q: %w", cfg.Listen, err)
		}
		portNum, err := strconv.Atoi(port)
		if err != nil || portNum < 0 || portNum > 65535 {
			return fmt.Errorf("invalid API listen port %q in %q", port, cfg.Listen)
		}
		logger.Info().Str("addr", cfg.Listen).Msg("✓ API listen address is valid")
	}

	// b. Package index (URL syntax + scheme, or a readable catalog)
	if cfg.Index.Catalog != "" {
		if err := checkFileReadable(cfg.Index.Catalog); err != nil {
			return fmt.Errorf("index catalog error: %w", err)
		}
		logger.Info().Str("path", cfg.Index.Catalog).Msg("✓ Index catalog is readable")
	} else if cfg.Index.URL == "" {
		logger.Warn().Msg("package index not configured; registry-backed rules will be skipped")
	} else {
		u, err := url.Parse(cfg.Index.URL)
		if err != nil {
			return fmt.Errorf("invalid %s URL: %w", config.EnvIndexURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s scheme must be http or https, got: %s", config.EnvIndexURL, u.Scheme)
		}
		logger.Info().Str("url", cfg.Index.URL).Msg("✓ Index base URL is valid")
	}

	// c. Manifests must not be duplicated (two audits racing the same report path)
	seen := make(map[string]bool, len(cfg.Manifests))
	for _, m := range cfg.Manifests {
		clean := filepath.Clean(m)
		if seen[clean] {
			return fmt.Errorf("manifest %q configured twice", m)
		}
		seen[clean] = true
	}

	// d. Persistence safety warnings
	if strings.EqualFold(cfg.Store.Backend, "memory") {
		logger.Warn().
			Str("store_backend", cfg.Store.Backend).
			Msg("using in-memory store; run history is not persistent across restarts")
	}

	tempDir := filepath.Clean(os.TempDir())
	dataDir := filepath.Clean(cfg.DataDir)
	if tempDir != "." && (dataDir == tempDir || strings.HasPrefix(dataDir, tempDir+string(filepath.Separator))) {
		logger.Warn().
			Str("data_dir", cfg.DataDir).
			Msg("data directory is under temp; reports and run history may be lost on reboot")
	}

	return nil
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config; verifying readability is expected
	if err != nil {
		return err
	}
	return f.Close()
}
