package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "tidegraph"

var (
	requestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "request_latency",
			Subsystem: subsystem,
			Help:      "HTTP request latencies in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.2, 0.4, 0.8, 1.0, 2.0, 4.0, 8.0, 16.0, 32.0},
		},
		[]string{"verb", "path", "code"},
	)

	locationRebuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "location_rebuilds_total",
			Subsystem: subsystem,
			Help:      "Per location tide curve rebuilds by outcome.",
		},
		[]string{"status"},
	)

	rebuildLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:      "location_rebuild_seconds",
			Subsystem: subsystem,
			Help:      "Time to rebuild one location's tide curve.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	samplesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:      "graph_samples_written_total",
			Subsystem: subsystem,
			Help:      "Graph samples written to storage.",
		},
	)

	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:      "rebuild_run_seconds",
			Subsystem: subsystem,
			Help:      "Time to rebuild every location in one run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)
)

func init() {
	prometheus.MustRegister(
		requestLatency,
		locationRebuilds,
		rebuildLatency,
		samplesWritten,
		runDuration,
	)
}

func ObserveRequestLatency(verb, path, code string, latency float64) {
	requestLatency.With(prometheus.Labels{
		"code": code,
		"verb": verb,
		"path": path,
	}).Observe(latency)
}

// ObserveRebuild records one location's rebuild.
func ObserveRebuild(status string, latency time.Duration, samples int) {
	locationRebuilds.WithLabelValues(status).Inc()
	rebuildLatency.Observe(latency.Seconds())
	samplesWritten.Add(float64(samples))
}

// ObserveRun records a whole rebuild run.
func ObserveRun(latency time.Duration) {
	runDuration.Observe(latency.Seconds())
}

func LatencyHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := time.Now()
		verb := r.Method
		path := routePath(r)
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

		// Defer metric observing. Any panics in next are reported as 500 errors
		// and then re-thrown.
		defer func() {
			if err := recover(); err != nil {
				ObserveRequestLatency(verb, path, "500", time.Since(t).Seconds())
				panic(err)
			}
			ObserveRequestLatency(verb, path, strconv.Itoa(rec.code), time.Since(t).Seconds())
		}()

		next.ServeHTTP(rec, r)
	})
}

// routePath labels requests by route template so location ids do not explode
// the label space.
func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	if r.URL != nil {
		return r.URL.Path
	}
	return ""
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}
