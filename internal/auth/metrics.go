// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package auth

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

var authEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "petadopt_auth_events_total",
		Help: "Total number of auth operations by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

// RegisterMetrics registers auth metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(authEvents)
}

// recordOutcome counts one operation, labelled "ok" or by the lowercased error code.
func recordOutcome(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(ErrorCode(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	authEvents.WithLabelValues(operation, outcome).Inc()
}
