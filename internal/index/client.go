// SPDX-License-Identifier: MIT

package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/reqwatch/reqwatch/internal/log"
	"github.com/reqwatch/reqwatch/internal/manifest"
	"github.com/reqwatch/reqwatch/internal/platform/httpx"
	"github.com/reqwatch/reqwatch/internal/telemetry"
	"github.com/reqwatch/reqwatch/internal/version"
)

// Responses beyond this size are cut off during decoding.
const maxResponseBytes = 8 << 20

// Client talks to the JSON API of a package index. Every lookup is a
// single attempt; transient upstream trouble surfaces as an error and
// the caller decides what a failed resolution means for its run.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	agent   string
	log     zerolog.Logger
}

// ClientOptions tune the index client. Zero values select defaults.
type ClientOptions struct {
	Timeout   time.Duration // per-request timeout, default 15s
	MaxRPS    float64       // outbound request budget, default 5/s
	Burst     int           // limiter burst, default 10
	UserAgent string
}

// NewClient builds a client for the index at base, e.g. "https://pypi.org".
func NewClient(base string, opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxRPS <= 0 {
		opts.MaxRPS = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "reqwatch/" + version.Version
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		http:    httpx.NewClient(opts.Timeout),
		limiter: rate.NewLimiter(rate.Limit(opts.MaxRPS), opts.Burst),
		agent:   opts.UserAgent,
		log:     log.WithComponent("index"),
	}
}

type projectResponse struct {
	Info struct {
		Name         string   `json:"name"`
		Version      string   `json:"version"`
		License      string   `json:"license"`
		Classifiers  []string `json:"classifiers"`
		RequiresDist []string `json:"requires_dist"`
	} `json:"info"`
}

// Project implements Provider against GET {base}/pypi/{name}/json.
func (c *Client) Project(ctx context.Context, name string) (*Project, error) {
	canonical := manifest.CanonicalName(name)
	if canonical == "" {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}

	ctx, span := telemetry.Tracer("reqwatch/index").Start(ctx, "index.project")
	defer span.End()

	// Limiter waits count into the span.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.base + "/pypi/" + url.PathEscape(canonical) + "/json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.agent)

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		observeRequest("transport_error", time.Since(start))
		span.SetAttributes(telemetry.ErrorAttributes(err, "transport_error")...)
		span.SetStatus(codes.Error, err.Error())
		return nil, &APIError{Sentinel: ErrUnavailable, Package: canonical, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseBytes))
		_ = res.Body.Close()
	}()

	span.SetAttributes(telemetry.IndexAttributes(canonical, res.StatusCode)...)

	switch {
	case res.StatusCode == http.StatusNotFound:
		observeRequest("not_found", time.Since(start))
		return nil, &APIError{Sentinel: ErrNotFound, Package: canonical, Status: res.StatusCode}
	case res.StatusCode == http.StatusTooManyRequests:
		observeRequest("rate_limited", time.Since(start))
		span.SetStatus(codes.Error, "rate limited by index")
		return nil, &APIError{Sentinel: ErrRateLimited, Package: canonical, Status: res.StatusCode}
	case res.StatusCode != http.StatusOK:
		observeRequest("upstream_error", time.Since(start))
		span.SetStatus(codes.Error, res.Status)
		return nil, &APIError{Sentinel: ErrUpstream, Package: canonical, Status: res.StatusCode}
	}

	var payload projectResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes)).Decode(&payload); err != nil {
		observeRequest("bad_response", time.Since(start))
		span.SetAttributes(telemetry.ErrorAttributes(err, "bad_response")...)
		span.SetStatus(codes.Error, err.Error())
		return nil, &APIError{Sentinel: ErrBadResponse, Package: canonical, Err: err}
	}
	observeRequest("ok", time.Since(start))

	project := &Project{
		Name:     manifest.CanonicalName(payload.Info.Name),
		Version:  strings.TrimSpace(payload.Info.Version),
		License:  licenseFromInfo(payload.Info.License, payload.Info.Classifiers),
		Requires: ParseRequiresDist(payload.Info.RequiresDist),
	}
	if project.Name == "" {
		project.Name = canonical
	}

	c.log.Debug().
		Str("event", "index.project").
		Str(log.FieldPackage, canonical).
		Int("requires", len(project.Requires)).
		Dur("duration", time.Since(start)).
		Msg("resolved project")

	return project, nil
}

// Requires implements Provider.
func (c *Client) Requires(ctx context.Context, name string) ([]string, error) {
	p, err := c.Project(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.Requires, nil
}

// licenseFromInfo prefers the explicit license field and falls back to
// the last segment of a "License ::" trove classifier.
func licenseFromInfo(license string, classifiers []string) string {
	if l := strings.TrimSpace(license); l != "" {
		return l
	}
	for _, cl := range classifiers {
		if !strings.HasPrefix(cl, "License ::") {
			continue
		}
		parts := strings.Split(cl, "::")
		if last := strings.TrimSpace(parts[len(parts)-1]); last != "" {
			return last
		}
	}
	return ""
}
