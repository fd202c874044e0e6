// SPDX-License-Identifier: MIT

// Command reqwatch-soak drives a running reqwatch daemon with sustained
// traffic and checks behavioural invariants: malformed manifests are
// always flagged, triggered audits land in run history, and the audit
// counter moves. Point the daemon at a catalog (or no index at all) for
// deterministic outcomes.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Report is the JSON artifact one soak run writes.
type Report struct {
	RunID           string           `json:"run_id"`
	Seed            int64            `json:"seed"`
	StartedAt       time.Time        `json:"started_at"`
	EndedAt         time.Time        `json:"ended_at"`
	DurationSeconds float64          `json:"duration_s"`
	ScenarioResults []ScenarioResult `json:"scenario_results"`
	Summary         Summary          `json:"summary"`
}

// ScenarioResult holds the outcome of a single scenario.
type ScenarioResult struct {
	Name         string           `json:"name"`
	Pass         bool             `json:"pass"`
	Reason       string           `json:"reason,omitempty"`
	Observations map[string]int64 `json:"observations"`
	Failures     []Failure        `json:"failures,omitempty"`
}

// Failure captures one invariant violation.
type Failure struct {
	Time    time.Time `json:"time"`
	RuleID  string    `json:"rule_id"`
	Message string    `json:"message"`
}

// Summary is the aggregate verdict.
type Summary struct {
	PassedScenarios int    `json:"passed_scenarios"`
	FailedScenarios int    `json:"failed_scenarios"`
	Verdict         string `json:"verdict"` // PASS or FAIL
}

// Config holds the command-line knobs.
type Config struct {
	BaseURL       string
	MetricsURL    string
	Token         string
	Duration      time.Duration
	Seed          int64
	Concurrency   int
	MalformedRate float64
	AuditCycles   int
	ArtifactDir   string
}

// maxFailuresPerScenario caps the failure list so a systematic breakage
// does not balloon the report.
const maxFailuresPerScenario = 25

func main() {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "base-url", "http://localhost:8080", "reqwatch API base URL")
	flag.StringVar(&cfg.MetricsURL, "metrics-url", "http://localhost:9090", "metrics listener base URL (empty to skip metric checks)")
	flag.StringVar(&cfg.Token, "token", os.Getenv("REQWATCH_API_TOKEN"), "API token")
	flag.DurationVar(&cfg.Duration, "duration", 60*time.Second, "lint storm duration")
	flag.Int64Var(&cfg.Seed, "seed", time.Now().UnixNano(), "random seed for reproducible runs")
	flag.IntVar(&cfg.Concurrency, "concurrency", 8, "concurrent lint workers")
	flag.Float64Var(&cfg.MalformedRate, "malformed-rate", 0.2, "fraction of lint bodies that are intentionally broken")
	flag.IntVar(&cfg.AuditCycles, "audit-cycles", 3, "audit trigger cycles")
	flag.StringVar(&cfg.ArtifactDir, "artifacts", "soak-artifacts", "directory for report artifacts")
	flag.Parse()

	client := NewClient(cfg.BaseURL, cfg.Token)
	if err := client.Ready(); err != nil {
		fmt.Fprintf(os.Stderr, "reqwatch-soak: daemon not ready at %s: %v\n", cfg.BaseURL, err)
		os.Exit(1)
	}

	report := Report{
		RunID:     uuid.NewString(),
		Seed:      cfg.Seed,
		StartedAt: time.Now().UTC(),
	}

	fmt.Printf("soak %s: seed=%d base=%s duration=%s workers=%d\n",
		report.RunID, cfg.Seed, cfg.BaseURL, cfg.Duration, cfg.Concurrency)

	report.ScenarioResults = append(report.ScenarioResults, runLintStorm(cfg, client))
	report.ScenarioResults = append(report.ScenarioResults, runAuditCycle(cfg, client))

	report.EndedAt = time.Now().UTC()
	report.DurationSeconds = report.EndedAt.Sub(report.StartedAt).Seconds()
	report.Summary = summarize(report.ScenarioResults)

	for _, res := range report.ScenarioResults {
		status := "PASS"
		if !res.Pass {
			status = "FAIL"
		}
		fmt.Printf("  %-12s %s", res.Name, status)
		if res.Reason != "" {
			fmt.Printf(" (%s)", res.Reason)
		}
		fmt.Println()
	}
	fmt.Printf("verdict: %s\n", report.Summary.Verdict)

	if err := writeReport(cfg.ArtifactDir, &report); err != nil {
		fmt.Fprintf(os.Stderr, "reqwatch-soak: write report: %v\n", err)
		os.Exit(1)
	}
	if report.Summary.Verdict != "PASS" {
		os.Exit(1)
	}
}

func summarize(results []ScenarioResult) Summary {
	s := Summary{Verdict: "PASS"}
	for _, res := range results {
		if res.Pass {
			s.PassedScenarios++
		} else {
			s.FailedScenarios++
			s.Verdict = "FAIL"
		}
	}
	return s
}

func writeReport(dir string, report *Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "soak-"+report.RunID+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return err
	}
	fmt.Printf("report: %s\n", path)
	return nil
}
