// SPDX-License-Identifier: MIT

package jobs

import (
	"fmt"

	"github.com/reqwatch/reqwatch/internal/config"
	"github.com/reqwatch/reqwatch/internal/index"
	"github.com/reqwatch/reqwatch/internal/licenses"
	"github.com/reqwatch/reqwatch/internal/store"
)

// FromConfig builds a runner for the resolved daemon configuration.
// The daemon calls this at startup and again on every reload; a runner
// is a snapshot and is replaced, never mutated.
func FromConfig(cfg *config.Config, st store.Store) (*Runner, error) {
	provider, err := BuildProvider(cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("index provider: %w", err)
	}
	return NewRunner(Deps{
		Config: Config{
			DataDir:     cfg.DataDir,
			Manifests:   cfg.Manifests,
			PinsFile:    cfg.PinsFile,
			Parallelism: cfg.Audit.Parallelism,
			Overrides:   cfg.LintOverrides(),
			Policy: licenses.Policy{
				Allow: cfg.Licenses.Allow,
				Deny:  cfg.Licenses.Deny,
			},
		},
		Provider: provider,
		Store:    st,
	}), nil
}

// BuildProvider selects the package-metadata source. A catalog file wins
// over the HTTP index; with neither configured the provider is nil and
// index-backed rules are skipped.
func BuildProvider(cfg config.IndexConfig) (index.Provider, error) {
	if cfg.Catalog != "" {
		return index.LoadCatalog(cfg.Catalog)
	}
	if cfg.URL != "" {
		return index.NewClient(cfg.URL, index.ClientOptions{
			Timeout: cfg.Timeout,
			MaxRPS:  cfg.MaxRPS,
			Burst:   cfg.Burst,
		}), nil
	}
	return nil, nil
}
