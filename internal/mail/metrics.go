// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package mail

import "github.com/prometheus/client_golang/prometheus"

const (
	statusSent    = "sent"
	statusFailed  = "failed"
	statusDropped = "dropped"
)

var deliveries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "petadopt_mail_deliveries_total",
		Help: "Total number of queued mail messages by final delivery status",
	},
	[]string{"status"},
)

var queueDepth = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "petadopt_mail_queue_depth",
		Help: "Number of messages waiting in the mail dispatcher queue",
	},
)

// RegisterMetrics registers mail metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(deliveries)
	reg.MustRegister(queueDepth)
}
