package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "riteswipe",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riteswipe",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riteswipe",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	pushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riteswipe",
			Subsystem: "realtime",
			Name:      "pushes_total",
			Help:      "Realtime messages written to connected clients.",
		},
		[]string{"event", "result"},
	)

	connections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "riteswipe",
			Subsystem: "realtime",
			Name:      "connections",
			Help:      "Currently connected realtime clients.",
		},
	)

	outboxDispatch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riteswipe",
			Subsystem: "outbox",
			Name:      "dispatch_total",
			Help:      "Outbox deliveries per target.",
		},
		[]string{"target", "result"},
	)

	outboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "riteswipe",
			Subsystem: "outbox",
			Name:      "pending_events",
			Help:      "Outbox events found undispatched by the last sweep.",
		},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riteswipe",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Status transitions committed per entity.",
		},
		[]string{"entity", "to"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riteswipe",
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Scheduled job runs.",
		},
		[]string{"job", "success"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riteswipe",
			Subsystem: "jobs",
			Name:      "run_duration_seconds",
			Help:      "Duration of scheduled job runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"job"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		pushes,
		connections,
		outboxDispatch,
		outboxPending,
		transitions,
		jobRuns,
		jobDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RequestStarted()  { httpInFlight.Inc() }
func RequestFinished() { httpInFlight.Dec() }

// ObserveRequest records a finished HTTP request. path should be the route
// template, not the raw URL, to keep label cardinality bounded.
func ObserveRequest(method, path string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func Push(event string, delivered bool) {
	pushes.WithLabelValues(event, result(delivered)).Inc()
}

func ClientConnected()    { connections.Inc() }
func ClientDisconnected() { connections.Dec() }

func OutboxDispatch(target string, ok bool) {
	outboxDispatch.WithLabelValues(target, result(ok)).Inc()
}

func OutboxPending(n int) {
	outboxPending.Set(float64(n))
}

func Transition(entity, to string) {
	transitions.WithLabelValues(entity, to).Inc()
}

func JobRun(job string, success bool, elapsed time.Duration) {
	jobRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
	jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
