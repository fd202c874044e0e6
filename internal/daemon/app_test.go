// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/reqwatch/reqwatch/internal/config"
	"github.com/reqwatch/reqwatch/internal/jobs"
	"github.com/reqwatch/reqwatch/internal/log"
	"github.com/reqwatch/reqwatch/internal/store"
)

// testApp builds an app around a memory store without a manager; tests
// drive the individual loops directly.
func testApp(t *testing.T, cfg *config.Config) (*App, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	runner, err := jobs.FromConfig(cfg, st)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	app := NewApp(log.WithComponent("test"), nil, nil, nil, st, cfg, runner)
	return app, st
}

func waitForRuns(t *testing.T, st store.Store, want int, timeout time.Duration) []*store.Run {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		runs, err := st.ListRuns(context.Background(), 0)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) >= want {
			return runs
		}
		if time.Now().After(deadline) {
			t.Fatalf("recorded %d runs, want at least %d", len(runs), want)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestApp_ApplyConfigSwapsGeneration(t *testing.T) {
	cfg := testConfig(t)
	app, _ := testApp(t, cfg)

	_, oldRunner := app.snapshot()

	next := *cfg
	next.Manifests = append([]string{}, cfg.Manifests...)
	next.API.Token = "rotated"
	app.applyConfig(&next)

	gotCfg, gotRunner := app.snapshot()
	if gotCfg != &next {
		t.Error("applyConfig() did not swap the config")
	}
	if gotRunner == oldRunner {
		t.Error("applyConfig() did not rebuild the runner")
	}
}

func TestApp_ApplyConfigRejectsBadGeneration(t *testing.T) {
	cfg := testConfig(t)
	app, _ := testApp(t, cfg)

	oldCfg, oldRunner := app.snapshot()

	bad := *cfg
	bad.Index.Catalog = filepath.Join(t.TempDir(), "missing.yaml")
	app.applyConfig(&bad)

	gotCfg, gotRunner := app.snapshot()
	if gotCfg != oldCfg || gotRunner != oldRunner {
		t.Error("applyConfig() swapped in a config whose runner cannot be built")
	}
}

func TestApp_SchedulerRunsStartupAudit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t)
	cfg.Audit.Interval = 0 // scheduler disabled, startup audit still runs
	app, st := testApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = app.runScheduler(ctx)
	}()

	runs := waitForRuns(t, st, 1, 3*time.Second)
	if runs[0].Trigger != store.TriggerSchedule {
		t.Errorf("startup run trigger = %q, want %q", runs[0].Trigger, store.TriggerSchedule)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}

func TestApp_SchedulerTicks(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t)
	cfg.Audit.Interval = 30 * time.Millisecond
	app, st := testApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = app.runScheduler(ctx)
	}()

	// Startup audit plus at least one tick.
	waitForRuns(t, st, 2, 3*time.Second)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}

func TestApp_WatcherAuditsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t)
	app, st := testApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = app.runWatcher(ctx)
	}()

	// Give fsnotify a moment to arm before the write.
	time.Sleep(100 * time.Millisecond)

	content := "# Direct dependencies\nrequests>=2.32.0 # Apache-2.0\n"
	if err := os.WriteFile(cfg.Manifests[0], []byte(content), 0o600); err != nil {
		t.Fatalf("rewrite manifest: %v", err)
	}

	runs := waitForRuns(t, st, 1, 3*time.Second)
	if runs[0].Trigger != store.TriggerWatch {
		t.Errorf("watch run trigger = %q, want %q", runs[0].Trigger, store.TriggerWatch)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancellation")
	}
}

func TestApp_WatcherDisabled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t)
	cfg.Audit.Watch = false
	app, st := testApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = app.runWatcher(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(cfg.Manifests[0], []byte("requests>=2.32.0\n"), 0o600); err != nil {
		t.Fatalf("rewrite manifest: %v", err)
	}

	time.Sleep(2 * watchDebounce)
	runs, err := st.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("watcher audited with watching disabled: %d runs", len(runs))
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancellation")
	}
}

func TestWatchSet(t *testing.T) {
	cfg := &config.Config{
		Manifests: []string{
			"/etc/app/requirements.txt",
			"/etc/app/requirements-dev.txt",
			"/srv/other/reqs.txt",
		},
		PinsFile: "/etc/app/constraints.txt",
	}

	files, dirs := watchSet(cfg)

	for _, f := range []string{
		"/etc/app/requirements.txt",
		"/etc/app/requirements-dev.txt",
		"/srv/other/reqs.txt",
		"/etc/app/constraints.txt",
	} {
		if !files[f] {
			t.Errorf("watchSet() missing file %s", f)
		}
	}
	if len(dirs) != 2 {
		t.Errorf("watchSet() dirs = %v, want the two parent directories", dirs)
	}
}
