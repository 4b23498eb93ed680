// Package metrics Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movienight_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// 目录同步
	CatalogSyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movienight_catalog_sync_runs_total",
			Help: "Total number of catalog sync runs by outcome",
		},
		[]string{"outcome"},
	)

	CatalogPagesFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movienight_catalog_pages_failed_total",
			Help: "Total number of catalog pages skipped because of errors",
		},
	)

	CatalogMoviesUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movienight_catalog_movies_upserted_total",
			Help: "Total number of movies upserted by catalog sync",
		},
	)

	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movienight_catalog_requests_total",
			Help: "Total number of external catalog requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	// 实时通道
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movienight_realtime_connections",
			Help: "Current number of local realtime connections",
		},
	)

	RealtimeMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movienight_realtime_messages_total",
			Help: "Total number of realtime frames by delivery path",
		},
		[]string{"path"}, // local, relayed, dropped
	)

	// 通知
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movienight_notifications_total",
			Help: "Total number of notifications created by type",
		},
		[]string{"type"},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movienight_notification_failures_total",
			Help: "Total number of best-effort notification steps that failed",
		},
		[]string{"step"}, // store, push, publish
	)
)
