// SPDX-License-Identifier: MIT

package config

// Entry describes one configuration knob for documentation and example
// generation. Path is the YAML key path, Env the overriding variable.
type Entry struct {
	Path    string
	Env     string
	Default any
	Doc     string
	Secret  bool
}

// Registry lists every documented configuration knob. Defaults are taken
// from Default() so generated docs cannot drift from the code.
func Registry() []Entry {
	d := Default()
	return []Entry{
		{Path: "listen", Env: EnvListen, Default: d.Listen, Doc: "API listen address"},
		{Path: "metrics_listen", Env: EnvMetricsListen, Default: d.MetricsListen, Doc: "Prometheus listener; empty disables it"},
		{Path: "data_dir", Env: EnvDataDir, Default: d.DataDir, Doc: "root for reports and run history"},
		{Path: "log_level", Env: EnvLogLevel, Default: d.LogLevel, Doc: "trace, debug, info, warn or error"},
		{Path: "manifests", Env: EnvManifests, Default: d.Manifests, Doc: "manifest files to audit"},
		{Path: "pins_file", Env: EnvPinsFile, Default: d.PinsFile, Doc: "optional pins file checked against manifest floors"},

		{Path: "audit.interval", Env: EnvInterval, Default: d.Audit.Interval, Doc: "scheduled audit period; 0s disables the scheduler"},
		{Path: "audit.watch", Env: EnvWatch, Default: d.Audit.Watch, Doc: "re-audit when a manifest file changes"},
		{Path: "audit.parallelism", Env: EnvParallelism, Default: d.Audit.Parallelism, Doc: "manifests audited concurrently per run"},

		{Path: "index.url", Env: EnvIndexURL, Default: d.Index.URL, Doc: "package index base URL; empty skips index-backed checks"},
		{Path: "index.catalog", Env: EnvIndexCatalog, Default: d.Index.Catalog, Doc: "local metadata catalog file; wins over index.url"},
		{Path: "index.timeout", Env: EnvIndexTimeout, Default: d.Index.Timeout, Doc: "per-request index timeout"},
		{Path: "index.rps", Env: EnvIndexRPS, Default: d.Index.MaxRPS, Doc: "index request rate limit"},
		{Path: "index.burst", Env: EnvIndexBurst, Default: d.Index.Burst, Doc: "index request burst allowance"},

		{Path: "lint.rules", Env: EnvDisableRules, Default: map[string]RuleOverride(nil), Doc: "per-rule overrides; the variable lists rule ids to disable"},

		{Path: "licenses.allow", Env: EnvLicenseAllow, Default: d.Licenses.Allow, Doc: "SPDX allowlist; packages outside it violate policy"},
		{Path: "licenses.deny", Env: EnvLicenseDeny, Default: d.Licenses.Deny, Doc: "SPDX denylist"},

		{Path: "api.token", Env: EnvAPIToken, Default: d.API.Token, Doc: "bearer token for mutating endpoints", Secret: true},
		{Path: "api.allow_anonymous", Env: EnvAllowAnonymous, Default: d.API.AllowAnonymous, Doc: "serve without a token (not recommended)"},
		{Path: "api.cors_origins", Env: EnvCORSOrigins, Default: d.API.CORSOrigins, Doc: "allowed CORS origins"},
		{Path: "api.rate_limit", Env: EnvRateLimit, Default: d.API.RateLimit, Doc: "requests per minute per client IP; 0 disables"},
		{Path: "api.max_lint_body", Env: EnvMaxLintBody, Default: d.API.MaxLintBody, Doc: "request body cap for stateless lint, in bytes"},

		{Path: "store.backend", Env: EnvStoreBackend, Default: d.Store.Backend, Doc: "run-history backend: memory, sqlite or badger"},

		{Path: "telemetry.enabled", Env: EnvOTELEnabled, Default: d.Telemetry.Enabled, Doc: "export traces over OTLP"},
		{Path: "telemetry.endpoint", Env: EnvOTELEndpoint, Default: d.Telemetry.Endpoint, Doc: "OTLP collector endpoint"},
		{Path: "telemetry.protocol", Env: EnvOTELProtocol, Default: d.Telemetry.Protocol, Doc: "grpc or http"},
		{Path: "telemetry.sample_ratio", Env: EnvOTELSampleRatio, Default: d.Telemetry.SampleRatio, Doc: "trace sampling ratio in [0,1]"},
	}
}
