package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_login_total",
			Help: "Total number of login attempts",
		},
	)

	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_register_total",
			Help: "Total number of shop registrations",
		},
	)

	// Shop operation counter
	ShopOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_shop_operations_total",
			Help: "Total number of shop operations",
		},
		[]string{"operation"}, // operation can be "create", "list", "select", "create_table", etc.
	)

	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"},
	)

	ReportCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_reports_generated_total",
			Help: "Total number of generated reports",
		},
		[]string{"kind", "trigger"}, // trigger is "http" or "cron"
	)

	JobRunCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_scheduler_job_runs_total",
			Help: "Total number of scheduled job runs",
		},
		[]string{"job", "result"},
	)
)

// Histogram metrics
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

var InfoGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "ledger_info",
		Help: "Information about the ledger service",
	},
	[]string{"version"},
)

func init() {
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(ShopOperationCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(ReportCounter)
	prometheus.MustRegister(JobRunCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(InfoGauge)
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// RegisterTenantRegistrySize exposes the number of cached tenant connections
func RegisterTenantRegistrySize(size func() int) error {
	return prometheus.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ledger_tenant_registry_size",
			Help: "Number of tenant databases with an open connection pool",
		},
		func() float64 { return float64(size()) },
	))
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(time.Since(start).Seconds())
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordShopOperation records a shop operation
func RecordShopOperation(operation string) {
	ShopOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordReport records a generated report
func RecordReport(kind, trigger string) {
	ReportCounter.With(prometheus.Labels{"kind": kind, "trigger": trigger}).Inc()
}

// RecordJobRun records the outcome of a scheduled job
func RecordJobRun(job string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	JobRunCounter.With(prometheus.Labels{"job": job, "result": result}).Inc()
}
