// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Audit metrics
	auditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reqwatch",
		Name:      "audits_total",
		Help:      "Audit runs by trigger and outcome",
	}, []string{"trigger", "outcome"}) // outcome=success|failure

	auditDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reqwatch",
		Name:      "audit_duration_seconds",
		Help:      "Wall-clock time of a full audit run",
		Buckets:   prometheus.DefBuckets,
	})

	auditLastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reqwatch",
		Name:      "audit_last_success_timestamp_seconds",
		Help:      "Unix time of the last successful audit run",
	})

	auditStageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reqwatch",
		Name:      "audit_stage_failures_total",
		Help:      "Audit failures by stage",
	}, []string{"stage"}) // stage=read|parse|lint|licenses|report|store

	// Manifest metrics (state of the last run)
	manifestPackages = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "reqwatch",
		Name:      "manifest_packages",
		Help:      "Declared packages per manifest (last run)",
	}, []string{"manifest"})

	manifestFindings = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "reqwatch",
		Name:      "manifest_findings",
		Help:      "Lint findings per manifest by severity (last run)",
	}, []string{"manifest", "severity"}) // severity=error|warning|info

	manifestUnknownLicenses = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "reqwatch",
		Name:      "manifest_unknown_licenses",
		Help:      "Declarations without a recognised license comment (last run)",
	}, []string{"manifest"})

	reportWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reqwatch",
		Name:      "report_write_errors_total",
		Help:      "Total number of report write failures",
	})

	// Operational metrics
	configReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reqwatch",
		Name:      "config_reloads_total",
		Help:      "Configuration reloads by outcome",
	}, []string{"outcome"}) // outcome=success|failure
)

func IncAudit(trigger, outcome string) { auditsTotal.WithLabelValues(trigger, outcome).Inc() }
func ObserveAuditDuration(seconds float64) {
	auditDurationSeconds.Observe(seconds)
}
func SetAuditLastSuccess(unixSeconds float64) { auditLastSuccess.Set(unixSeconds) }
func IncAuditStageFailure(stage string)       { auditStageFailures.WithLabelValues(stage).Inc() }

func RecordManifestPackages(manifest string, n int) {
	manifestPackages.WithLabelValues(manifest).Set(float64(n))
}

func RecordManifestFindings(manifest string, errors, warnings, infos int) {
	manifestFindings.WithLabelValues(manifest, "error").Set(float64(errors))
	manifestFindings.WithLabelValues(manifest, "warning").Set(float64(warnings))
	manifestFindings.WithLabelValues(manifest, "info").Set(float64(infos))
}

func RecordManifestUnknownLicenses(manifest string, n int) {
	manifestUnknownLicenses.WithLabelValues(manifest).Set(float64(n))
}

func IncReportWriteError() { reportWriteErrors.Inc() }

func IncConfigReload(outcome string) { configReloadsTotal.WithLabelValues(outcome).Inc() }
