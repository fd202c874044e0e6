// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Manifest domain fields
	FieldManifest = "manifest"
	FieldPackage  = "package"
	FieldRule     = "rule"
	FieldSeverity = "severity"
	FieldFindings = "findings"
	FieldLine     = "line"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"

	// Network fields
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
)
