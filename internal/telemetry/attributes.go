// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Audit attributes
	AuditManifestKey = "audit.manifest"
	AuditTriggerKey  = "audit.trigger"
	AuditRunIDKey    = "audit.run_id"
	AuditPackagesKey = "audit.packages"
	AuditFindingsKey = "audit.findings"

	// Package index attributes
	IndexPackageKey = "index.package"
	IndexStatusKey  = "index.status"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// AuditAttributes creates audit-run span attributes.
func AuditAttributes(manifest, trigger, runID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if manifest != "" {
		attrs = append(attrs, attribute.String(AuditManifestKey, manifest))
	}
	if trigger != "" {
		attrs = append(attrs, attribute.String(AuditTriggerKey, trigger))
	}
	if runID != "" {
		attrs = append(attrs, attribute.String(AuditRunIDKey, runID))
	}
	return attrs
}

// AuditResultAttributes creates span attributes for a finished audit.
func AuditResultAttributes(packages, findings int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AuditPackagesKey, packages),
		attribute.Int(AuditFindingsKey, findings),
	}
}

// IndexAttributes creates package-index lookup span attributes.
func IndexAttributes(pkg string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(IndexPackageKey, pkg),
		attribute.Int(IndexStatusKey, statusCode),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
