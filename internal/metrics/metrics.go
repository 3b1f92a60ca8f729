// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MediaUploads counts individual object-store uploads by result.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dronesight_media_uploads_total",
		Help: "Total number of media uploads by result",
	}, []string{"result"})

	// SightingSaves counts upload-and-save sequences by result.
	SightingSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dronesight_sighting_saves_total",
		Help: "Total number of sighting upload-and-save sequences by result",
	}, []string{"result"})

	// ActiveSubscriptions is the number of open live queries per collection.
	ActiveSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dronesight_live_subscriptions",
		Help: "Number of open live query subscriptions",
	}, []string{"collection"})

	// ScreenSessions is the number of connected screen sessions.
	ScreenSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dronesight_screen_sessions",
		Help: "Number of connected screen sessions",
	})

	// ScreenIntents counts intents handled per route and outcome.
	ScreenIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dronesight_screen_intents_total",
		Help: "Total screen intents by route and outcome",
	}, []string{"route", "outcome"})

	// HTTPRequests counts HTTP requests by method and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dronesight_http_requests_total",
		Help: "Total HTTP requests by method and status class",
	}, []string{"method", "status"})
)
