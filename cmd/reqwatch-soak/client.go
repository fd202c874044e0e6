// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a minimal reqwatch API client for the harness.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// LintOutcome mirrors the fields of a lint response the scenarios check.
type LintOutcome struct {
	Manifest string        `json:"manifest"`
	Findings []LintFinding `json:"findings"`
	Errors   int           `json:"errors"`
	Warnings int           `json:"warnings"`
	Infos    int           `json:"infos"`
}

type LintFinding struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

// RunInfo mirrors the run fields the scenarios check.
type RunInfo struct {
	ID       string `json:"id"`
	Trigger  string `json:"trigger"`
	Packages int    `json:"packages"`
	Errors   int    `json:"errors"`
	Success  bool   `json:"success"`
}

// StatusInfo mirrors GET /api/status.
type StatusInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Audit   struct {
		Running   bool   `json:"running"`
		LastRunID string `json:"lastRunId"`
	} `json:"audit"`
}

func (c *Client) do(method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/plain")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, data, nil
}

// Ready probes /readyz.
func (c *Client) Ready() error {
	status, _, err := c.do(http.MethodGet, "/readyz", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("readyz returned %d", status)
	}
	return nil
}

// Lint posts a manifest body for stateless linting.
func (c *Client) Lint(name string, body []byte) (*LintOutcome, int, error) {
	status, data, err := c.do(http.MethodPost, "/api/lint?manifest="+name, body)
	if err != nil || status != http.StatusOK {
		return nil, status, err
	}
	var out LintOutcome
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, status, fmt.Errorf("decode lint response: %w", err)
	}
	return &out, status, nil
}

// TriggerAudit fires one audit run. A 409 means a run is in progress;
// the caller decides what to do with that.
func (c *Client) TriggerAudit() (*RunInfo, int, error) {
	status, data, err := c.do(http.MethodPost, "/api/audit", nil)
	if err != nil || status != http.StatusOK {
		return nil, status, err
	}
	var run RunInfo
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, status, fmt.Errorf("decode audit response: %w", err)
	}
	return &run, status, nil
}

// GetAudit fetches one recorded run.
func (c *Client) GetAudit(id string) (*RunInfo, int, error) {
	status, data, err := c.do(http.MethodGet, "/api/audits/"+id, nil)
	if err != nil || status != http.StatusOK {
		return nil, status, err
	}
	var run RunInfo
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, status, fmt.Errorf("decode run: %w", err)
	}
	return &run, status, nil
}

// ListAudits fetches recent run history.
func (c *Client) ListAudits(limit int) ([]RunInfo, error) {
	status, data, err := c.do(http.MethodGet, fmt.Sprintf("/api/audits?limit=%d", limit), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list audits returned %d", status)
	}
	var runs []RunInfo
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("decode run list: %w", err)
	}
	return runs, nil
}

// Status fetches the daemon status.
func (c *Client) Status() (*StatusInfo, error) {
	status, data, err := c.do(http.MethodGet, "/api/status", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("status returned %d", status)
	}
	var out StatusInfo
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &out, nil
}
