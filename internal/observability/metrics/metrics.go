package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (O Outcome) String() string {
	return string(O)
}

// Until Init is called every recorder below is a no-op.
var (
	once                         sync.Once
	metricsRouter                *chi.Mux
	httpRequestDurationHistogram *prometheus.HistogramVec
	dbLatency                    *prometheus.HistogramVec
	pollerDurationHistogram      *prometheus.HistogramVec
	queryOutcomeCounter          *prometheus.CounterVec
	pendingQueriesGauge          *prometheus.GaugeVec
	maturedUnlocksCounter        *prometheus.CounterVec
	xcmSendFailureCounter        *prometheus.CounterVec
	exchangeRateDivergenceGauge  *prometheus.GaugeVec
	queueFailureCounter          *prometheus.CounterVec
)

// Init initializes the metrics package.
func Init(metricsAddr string, namespace string) {
	once.Do(func() {
		initMetricsRouter(metricsAddr)
		registerMetrics(namespace)
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsAddr string) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	go func() {
		log.Info().Msgf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics initializes and register the Prometheus metrics.
func registerMetrics(namespace string) {
	defaultHistogramBucketsSeconds := []float64{0.1, 0.5, 1, 2.5, 5, 10, 30}

	httpRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of http request durations in seconds.",
			Buckets:   defaultHistogramBucketsSeconds,
		},
		[]string{"endpoint", "status"},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_latency_seconds",
			Help:      "DB latency in seconds splitted by method and execution status",
		},
		[]string{"method", "status"},
	)

	pollerDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poller_duration_seconds",
			Help:      "Histogram of poller durations in seconds.",
			Buckets:   defaultHistogramBucketsSeconds,
		},
		[]string{"type", "status"},
	)

	queryOutcomeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_outcome_total",
			Help:      "Number of remote queries leaving pending, by operation and final status",
		},
		[]string{"operation", "status"},
	)

	pendingQueriesGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_queries",
			Help:      "Number of queries awaiting a remote response",
		},
		[]string{"asset"},
	)

	maturedUnlocksCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matured_unlocks_total",
			Help:      "Number of unlocking records paid out",
		},
		[]string{"asset"},
	)

	xcmSendFailureCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "xcm_send_failure_total",
			Help:      "Number of cross-chain programs the transport refused",
		},
		[]string{"destination"},
	)

	exchangeRateDivergenceGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exchange_rate_divergence_ratio",
			Help:      "Last relative divergence between the local token pool and the remote stake",
		},
		[]string{"asset"},
	)

	// add a counter for the number of errors from the fail to process a queue message
	queueFailureCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_message_failure_total",
			Help:      "The total number of queue messages that failed processing",
		},
		[]string{"queue"},
	)

	prometheus.MustRegister(
		httpRequestDurationHistogram,
		dbLatency,
		pollerDurationHistogram,
		queryOutcomeCounter,
		pendingQueriesGauge,
		maturedUnlocksCounter,
		xcmSendFailureCounter,
		exchangeRateDivergenceGauge,
		queueFailureCounter,
	)
}

// StartHttpRequestDurationTimer starts a timer to measure http request handling duration.
func StartHttpRequestDurationTimer(endpoint string) func(statusCode int) {
	startTime := time.Now()
	return func(statusCode int) {
		if httpRequestDurationHistogram == nil {
			return
		}
		duration := time.Since(startTime).Seconds()
		httpRequestDurationHistogram.WithLabelValues(endpoint, fmt.Sprintf("%d", statusCode)).Observe(duration)
	}
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	if dbLatency == nil {
		return
	}
	status := Success
	if failure {
		status = Error
	}

	dbLatency.WithLabelValues(method, status.String()).Observe(d.Seconds())
}

func RecordQueryOutcome(operation, status string) {
	if queryOutcomeCounter == nil {
		return
	}
	queryOutcomeCounter.WithLabelValues(operation, status).Inc()
}

func RecordPendingQueries(asset string, count int64) {
	if pendingQueriesGauge == nil {
		return
	}
	pendingQueriesGauge.WithLabelValues(asset).Set(float64(count))
}

func RecordMaturedUnlocks(asset string, count int) {
	if maturedUnlocksCounter == nil {
		return
	}
	maturedUnlocksCounter.WithLabelValues(asset).Add(float64(count))
}

func RecordXcmSendFailure(destination string) {
	if xcmSendFailureCounter == nil {
		return
	}
	xcmSendFailureCounter.WithLabelValues(destination).Inc()
}

func RecordExchangeRateDivergence(asset string, ratio float64) {
	if exchangeRateDivergenceGauge == nil {
		return
	}
	exchangeRateDivergenceGauge.WithLabelValues(asset).Set(ratio)
}

func RecordQueueFailure(queueName string) {
	if queueFailureCounter == nil {
		return
	}
	queueFailureCounter.WithLabelValues(queueName).Inc()
}
