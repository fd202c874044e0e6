// SPDX-License-Identifier: MIT

package index

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	indexRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reqwatch",
			Name:      "index_requests_total",
			Help:      "Package index requests by outcome",
		},
		[]string{"outcome"}, // ok|not_found|rate_limited|upstream_error|bad_response|transport_error
	)

	indexRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reqwatch",
			Name:      "index_request_duration_seconds",
			Help:      "Package index request latency",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func observeRequest(outcome string, elapsed time.Duration) {
	indexRequestsTotal.WithLabelValues(outcome).Inc()
	indexRequestDuration.Observe(elapsed.Seconds())
}
