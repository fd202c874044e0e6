// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MetricsClient scrapes the daemon's own metrics listener. The harness
// only needs counter totals, so label sets are summed per metric name.
type MetricsClient struct {
	baseURL string
	http    *http.Client
}

func NewMetricsClient(baseURL string) *MetricsClient {
	return &MetricsClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Scrape fetches /metrics and sums every reqwatch_ series by name.
func (m *MetricsClient) Scrape() (map[string]float64, error) {
	res, err := m.http.Get(m.baseURL + "/metrics")
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metrics returned %d", res.StatusCode)
	}

	totals := make(map[string]float64)
	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		name, value, ok := parseSample(scanner.Text())
		if !ok || !strings.HasPrefix(name, "reqwatch_") {
			continue
		}
		totals[name] += value
	}
	return totals, scanner.Err()
}

// Counter returns the summed value of one metric, 0 when absent.
func (m *MetricsClient) Counter(name string) (float64, error) {
	totals, err := m.Scrape()
	if err != nil {
		return 0, err
	}
	return totals[name], nil
}

// parseSample splits one exposition line into metric name and value.
// Histogram buckets and summary quantiles keep their suffixed series
// name, so sums stay per series name.
func parseSample(line string) (string, float64, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", 0, false
	}

	name := line
	if idx := strings.IndexAny(line, "{ "); idx != -1 {
		name = line[:idx]
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", 0, false
	}
	value, err := strconv.ParseFloat(fields[len(fields)-1], 64)
	if err != nil {
		return "", 0, false
	}
	return name, value, true
}
