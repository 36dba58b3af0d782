package logstore

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeCommitted     = "committed"
	outcomeOverwritten   = "overwritten"
	outcomeAlreadyExists = "already_exists"
	outcomeNotFound      = "not_found"
	outcomeInconsistent  = "inconsistent"
	outcomeIOError       = "io_error"
)

var (
	writeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commitlog_write_total",
		Help: "Write attempts by outcome.",
	}, []string{"outcome"})
	writeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "commitlog_write_duration_seconds",
		Help:    "Latency of write attempts.",
		Buckets: prometheus.DefBuckets,
	})
	readTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "commitlog_read_total",
		Help: "Total line-reader opens.",
	})
	listTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "commitlog_list_total",
		Help: "Total directory listings.",
	})
	sweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "commitlog_swept_temp_total",
		Help: "Abandoned staging files removed by the sweeper.",
	})
)

// RegisterMetrics registers the store's collectors with r, typically
// prometheus.DefaultRegisterer from the serving binary.
func RegisterMetrics(r prometheus.Registerer) {
	r.MustRegister(writeTotal, writeLatency, readTotal, listTotal, sweptTotal)
}
