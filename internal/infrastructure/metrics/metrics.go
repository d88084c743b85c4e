package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "homebot_"

	resultSuccess = "success"
	resultError   = "error"
	resultSkipped = "skipped"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	wsClients    prometheus.Gauge
	wsBroadcasts *prometheus.CounterVec
	wsDropped    prometheus.Counter

	sensorIngest *prometheus.CounterVec

	groupControl *prometheus.CounterVec

	reportGenerate *prometheus.HistogramVec
)

// Init registers the HomeBot collectors with the default registry.
// db may be nil; when set, connection pool gauges are exported too.
// Calling Init more than once is a no-op.
func Init(db *sql.DB) {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)

		wsClients = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "websocket_clients",
				Help: "Connected WebSocket clients",
			},
		)
		wsBroadcasts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "websocket_events_total",
				Help: "Real-time events fanned out by event name",
			},
			[]string{"event"},
		)
		wsDropped = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "websocket_dropped_total",
				Help: "Frames dropped because a client send buffer was full",
			},
		)

		sensorIngest = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sensor_readings_total",
				Help: "Sensor readings received by source and result",
			},
			[]string{"source", "result"},
		)

		groupControl = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "group_control_devices_total",
				Help: "Per-device group control outcomes",
			},
			[]string{"action", "result"},
		)

		reportGenerate = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_generate_seconds",
				Help:    "Report rendering latency by kind and format",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "format"},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			wsClients,
			wsBroadcasts,
			wsDropped,
			sensorIngest,
			groupControl,
			reportGenerate,
		)

		if db != nil {
			registerDBMetrics(db)
		}
	})
}

func registerDBMetrics(db *sql.DB) {
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: metricPrefix + "db_open_connections",
				Help: "Open SQLite connections",
			},
			func() float64 { return float64(db.Stats().OpenConnections) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: metricPrefix + "db_wait_count",
				Help: "Total waits for a SQLite connection",
			},
			func() float64 { return float64(db.Stats().WaitCount) },
		),
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}

// SetWSClients sets the connected client gauge.
func SetWSClients(n int) {
	if wsClients != nil {
		wsClients.Set(float64(n))
	}
}

// IncBroadcast counts one event fan-out.
func IncBroadcast(event string) {
	if wsBroadcasts != nil {
		wsBroadcasts.WithLabelValues(event).Inc()
	}
}

// IncDropped counts a frame dropped for a slow client.
func IncDropped() {
	if wsDropped != nil {
		wsDropped.Inc()
	}
}

// IncSensorReading counts a reading from source ("api", "mqtt", "csv").
func IncSensorReading(source string, err error) {
	if source == "" {
		source = "unknown"
	}
	if sensorIngest != nil {
		sensorIngest.WithLabelValues(source, result(err)).Inc()
	}
}

// IncGroupControl counts one device outcome of a group control call.
func IncGroupControl(action string, success, skipped bool) {
	if groupControl == nil {
		return
	}
	res := resultSuccess
	switch {
	case skipped:
		res = resultSkipped
	case !success:
		res = resultError
	}
	groupControl.WithLabelValues(action, res).Inc()
}

// ObserveReport records how long a report took to render.
func ObserveReport(kind, format string, duration time.Duration) {
	if reportGenerate != nil {
		reportGenerate.WithLabelValues(kind, format).Observe(duration.Seconds())
	}
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}
