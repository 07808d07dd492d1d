// Package metrics provides Prometheus metrics for filesmanager operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesmanager_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filesmanager_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Blob backend operation metrics
	BackendOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesmanager_backend_ops_total",
			Help: "Total number of blob backend operations",
		},
		[]string{"backend_type", "operation"},
	)

	BackendOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filesmanager_backend_op_duration_seconds",
			Help:    "Blob backend operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend_type", "operation"},
	)

	// Metadata database metrics
	MetadataDBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesmanager_metadata_db_queries_total",
			Help: "Total number of metadata database queries",
		},
		[]string{"operation", "status"},
	)

	MetadataDBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filesmanager_metadata_db_query_duration_seconds",
			Help:    "Metadata database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Token lifecycle metrics
	TokensIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filesmanager_tokens_issued_total",
			Help: "Total number of authentication tokens issued",
		},
	)

	TokenResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesmanager_token_resolutions_total",
			Help: "Total number of token resolutions",
		},
		[]string{"outcome"}, // "ok", "unauthenticated", "error"
	)

	TokensRevokedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filesmanager_tokens_revoked_total",
			Help: "Total number of authentication tokens revoked",
		},
	)

	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesmanager_login_attempts_total",
			Help: "Total number of credential verifications",
		},
		[]string{"outcome"}, // "success", "rejected", "error"
	)

	// Access gate decisions
	AccessDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesmanager_access_decisions_total",
			Help: "Total number of access gate decisions",
		},
		[]string{"decision"}, // "granted", "granted_public", "rejected", "error"
	)

	// Lock manager metrics
	LockOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesmanager_lock_operations_total",
			Help: "Total number of lock operations",
		},
		[]string{"operation", "status"}, // operation: "acquire", "release"; status: "success", "failure"
	)

	// File operations metrics
	FileOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesmanager_file_operations_total",
			Help: "Total number of file operations",
		},
		[]string{"operation", "type"}, // operation: "upload", "read", "publish", "unpublish"
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesmanager_errors_total",
			Help: "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)
)

// RegisterMetrics ensures all metrics are registered with Prometheus.
// This function is idempotent and safe to call multiple times.
func RegisterMetrics() {
	// All metrics are automatically registered via promauto.
}
