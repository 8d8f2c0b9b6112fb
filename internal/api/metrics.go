package api

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unposted",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "unposted",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	transcriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unposted",
			Name:      "transcriptions_total",
			Help:      "Transcription requests by outcome.",
		},
		[]string{"outcome"},
	)

	insightsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unposted",
			Name:      "insights_total",
			Help:      "Insight generations by outcome.",
		},
		[]string{"outcome"},
	)
)

// liveHandleSource reports how many transient audio handles are alive. The
// gauge is registered once at package init, so the source is swappable.
var liveHandleSource atomic.Value // func() int

var _ = promauto.NewGaugeFunc(
	prometheus.GaugeOpts{
		Namespace: "unposted",
		Name:      "live_audio_handles",
		Help:      "Transient audio handles currently held in memory.",
	},
	func() float64 {
		if f, ok := liveHandleSource.Load().(func() int); ok && f != nil {
			return float64(f())
		}
		return 0
	},
)

// SetLiveHandleSource wires the handle registry into the live-handles gauge.
func SetLiveHandleSource(f func() int) {
	liveHandleSource.Store(f)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency per matched route template.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
