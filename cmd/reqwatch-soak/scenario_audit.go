// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"net/http"
	"time"
)

const (
	idleTimeout  = 30 * time.Second
	idlePollStep = 500 * time.Millisecond
)

// runAuditCycle triggers full audit runs and checks that each completed
// run is retrievable by ID, shows up in the history listing, and bumps
// the audit counter on the metrics endpoint.
func runAuditCycle(cfg Config, client *Client) ScenarioResult {
	res := ScenarioResult{Name: "audit-cycle", Observations: map[string]int64{}}
	addFailure := func(rule, msg string) {
		if len(res.Failures) < maxFailuresPerScenario {
			res.Failures = append(res.Failures, Failure{Time: time.Now().UTC(), RuleID: rule, Message: msg})
		}
	}

	var metrics *MetricsClient
	var baseline float64
	if cfg.MetricsURL != "" {
		metrics = NewMetricsClient(cfg.MetricsURL)
		v, err := metrics.Counter("reqwatch_audits_total")
		if err != nil {
			res.Observations["metrics_unavailable"] = 1
			metrics = nil
		} else {
			baseline = v
		}
	}

	var triggered, conflicts, failedRuns int64
	for cycle := 0; cycle < cfg.AuditCycles; cycle++ {
		if err := waitIdle(client); err != nil {
			addFailure("SOAK-AUDIT-IDLE", err.Error())
			break
		}

		run, status, err := client.TriggerAudit()
		switch {
		case err != nil:
			addFailure("SOAK-AUDIT-HTTP", fmt.Sprintf("trigger failed: %v", err))
			continue
		case status == http.StatusConflict:
			// Lost the race against the scheduler; the next waitIdle
			// picks up after that run.
			conflicts++
			continue
		case status != http.StatusOK:
			addFailure("SOAK-AUDIT-HTTP", fmt.Sprintf("trigger returned %d", status))
			continue
		}
		triggered++
		if !run.Success {
			failedRuns++
		}

		got, status, err := client.GetAudit(run.ID)
		if err != nil || status != http.StatusOK {
			addFailure("SOAK-AUDIT-LOOKUP", fmt.Sprintf("run %s not retrievable: status=%d err=%v", run.ID, status, err))
		} else if got.ID != run.ID {
			addFailure("SOAK-AUDIT-LOOKUP", fmt.Sprintf("run lookup returned %s, want %s", got.ID, run.ID))
		}

		runs, err := client.ListAudits(5)
		if err != nil {
			addFailure("SOAK-AUDIT-LIST", err.Error())
		} else if !containsRun(runs, run.ID) {
			addFailure("SOAK-AUDIT-LIST", fmt.Sprintf("run %s missing from recent history", run.ID))
		}
	}

	res.Observations["triggered"] = triggered
	res.Observations["conflicts"] = conflicts
	res.Observations["failed_runs"] = failedRuns

	if metrics != nil {
		after, err := metrics.Counter("reqwatch_audits_total")
		if err != nil {
			addFailure("SOAK-AUDIT-METRICS", fmt.Sprintf("scrape after cycles failed: %v", err))
		} else {
			res.Observations["audits_total_delta"] = int64(after - baseline)
			if after < baseline+float64(triggered) {
				addFailure("SOAK-AUDIT-METRICS",
					fmt.Sprintf("reqwatch_audits_total rose by %.0f, want >= %d", after-baseline, triggered))
			}
		}
	}

	switch {
	case triggered == 0:
		res.Reason = "no audit run could be triggered"
	case len(res.Failures) > 0:
		res.Reason = fmt.Sprintf("%d check(s) failed", len(res.Failures))
	default:
		res.Pass = true
	}
	return res
}

// waitIdle blocks until the daemon reports no audit in flight.
func waitIdle(client *Client) error {
	deadline := time.Now().Add(idleTimeout)
	for {
		st, err := client.Status()
		if err != nil {
			return fmt.Errorf("status poll failed: %w", err)
		}
		if !st.Audit.Running {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("audit still running after %s", idleTimeout)
		}
		time.Sleep(idlePollStep)
	}
}

func containsRun(runs []RunInfo, id string) bool {
	for _, r := range runs {
		if r.ID == id {
			return true
		}
	}
	return false
}
