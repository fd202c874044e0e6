// SPDX-License-Identifier: MIT

// Command reqwatch-migrate copies audit run history between the durable
// store backends, for switching a deployment from sqlite to badger or
// back without losing history.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/reqwatch/reqwatch/internal/store"
)

func main() {
	var (
		dataDir = flag.String("dir", "data", "data directory holding both backends")
		from    = flag.String("from", store.BackendSQLite, "source backend (sqlite or badger)")
		to      = flag.String("to", store.BackendBadger, "target backend (sqlite or badger)")
		dryRun  = flag.Bool("dry-run", false, "count what would be copied without writing")
		verify  = flag.Bool("verify", false, "compare source and target instead of copying")
		force   = flag.Bool("force", false, "overwrite runs that already exist in the target")
	)
	flag.Parse()

	if err := run(context.Background(), *dataDir, *from, *to, *dryRun, *verify, *force); err != nil {
		fmt.Fprintf(os.Stderr, "reqwatch-migrate: %v\n", err)
		os.Exit(1)
	}
}

// integrityChecker is satisfied by backends that can inspect their own
// on-disk structure.
type integrityChecker interface {
	Verify(mode string) ([]string, error)
}

func run(ctx context.Context, dir, from, to string, dryRun, verify, force bool) error {
	if from == to {
		return fmt.Errorf("source and target backend are both %q", from)
	}
	for _, backend := range []string{from, to} {
		if backend != store.BackendSQLite && backend != store.BackendBadger {
			return fmt.Errorf("backend %q is not migratable (use sqlite or badger)", backend)
		}
	}

	src, err := store.OpenStore(from, dir)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	// A corrupt source would copy garbage or stall halfway; check before
	// touching the target. Only the sqlite backend can self-verify.
	if checker, ok := src.(integrityChecker); ok {
		diags, err := checker.Verify("quick")
		if err != nil {
			return fmt.Errorf("source integrity check: %w", err)
		}
		if len(diags) > 0 {
			return fmt.Errorf("source %s is corrupt: %s", from, diags[0])
		}
	}

	dst, err := store.OpenStore(to, dir)
	if err != nil {
		return fmt.Errorf("open target: %w", err)
	}
	defer dst.Close()

	runs, err := src.ListRuns(ctx, 0)
	if err != nil {
		return fmt.Errorf("list source runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Printf("ℹ️ No runs in %s, nothing to do.\n", from)
		return nil
	}
	// ListRuns is newest first; copy in original insertion order.
	slices.Reverse(runs)

	if verify {
		return verifyRuns(ctx, dst, runs, from, to)
	}

	h := sha256.New()
	copied, present := 0, 0
	for _, r := range runs {
		if !force {
			existing, err := dst.GetRun(ctx, r.ID)
			if err != nil {
				return fmt.Errorf("probe target for %s: %w", r.ID, err)
			}
			if existing != nil {
				present++
				continue
			}
		}
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode run %s: %w", r.ID, err)
		}
		h.Write(data)
		if !dryRun {
			if err := dst.PutRun(ctx, r); err != nil {
				return fmt.Errorf("write run %s: %w", r.ID, err)
			}
		}
		copied++
	}

	checksum := hex.EncodeToString(h.Sum(nil))[:12]
	if dryRun {
		fmt.Printf("Dry run: would copy %d run(s) from %s to %s (%d already present, checksum %s).\n",
			copied, from, to, present, checksum)
		return nil
	}
	fmt.Printf("✅ Copied %d run(s) from %s to %s (%d already present, checksum %s).\n",
		copied, from, to, present, checksum)
	return nil
}

func verifyRuns(ctx context.Context, dst store.Store, runs []*store.Run, from, to string) error {
	missing := 0
	for _, r := range runs {
		got, err := dst.GetRun(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("probe target for %s: %w", r.ID, err)
		}
		if got == nil {
			fmt.Printf("missing in %s: %s (%s)\n", to, r.ID, r.Manifest)
			missing++
		}
	}
	if missing > 0 {
		return fmt.Errorf("%d run(s) missing in %s", missing, to)
	}
	fmt.Printf("✅ All %d run(s) from %s are present in %s.\n", len(runs), from, to)
	return nil
}
