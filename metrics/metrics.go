// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics exposes Prometheus collectors for the API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlm_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mlm_http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Registrations counts registration outcomes by result label
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlm_registrations_total",
			Help: "Registration submissions by outcome",
		},
		[]string{"result"},
	)

	ReferralVisits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mlm_referral_visits_total",
			Help: "Hits on member replica links",
		},
	)

	MailFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mlm_mail_failures_total",
			Help: "Template e-mails that could not be delivered",
		},
	)
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
