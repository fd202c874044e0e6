// SPDX-License-Identifier: MIT

package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fileRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reqwatch_file_requests_total",
	Help: "Report file requests by outcome",
}, []string{"outcome"}) // outcome=allowed|cache_hit|not_found|denied|error
