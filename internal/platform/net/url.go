// SPDX-License-Identifier: MIT

// Package net validates and redacts the URLs the daemon is configured
// with, chiefly the package index endpoint.
package net

import (
	"net/url"
	"strings"
)

// SanitizeURL strips user info and query parameters so a configured URL
// can be logged without leaking credentials.
func SanitizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsed.User = nil
	parsed.RawQuery = ""
	return parsed.String()
}

// ParseDirectHTTPURL accepts only a plain http(s) URL with a host and
// no embedded credentials, query, or fragment. The index client appends
// paths to the base, so anything after the path would corrupt lookups.
func ParseDirectHTTPURL(s string) (*url.URL, bool) {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil {
		return nil, false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, false
	}
	if u.Host == "" {
		return nil, false
	}
	if u.User != nil {
		return nil, false
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, false
	}

	return u, true
}
