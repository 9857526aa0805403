package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	RowsPublished  prometheus.Counter
	PublishRetries prometheus.Counter
	RowsConsumed   prometheus.Counter
	RowsClean      prometheus.Counter
	RowsRejected   prometheus.Counter
	SinkWriteSec   prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	published := prometheus.NewCounter(prometheus.CounterOpts{Name: "etl_rows_published_total"})
	publishRetries := prometheus.NewCounter(prometheus.CounterOpts{Name: "etl_publish_retries_total"})
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "etl_rows_consumed_total"})
	clean := prometheus.NewCounter(prometheus.CounterOpts{Name: "etl_rows_clean_total"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "etl_rows_rejected_total"})
	writeSec := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "etl_sink_write_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(published, publishRetries, consumed, clean, rejected, writeSec)
	return &Registry{
		reg:            r,
		RowsPublished:  published,
		PublishRetries: publishRetries,
		RowsConsumed:   consumed,
		RowsClean:      clean,
		RowsRejected:   rejected,
		SinkWriteSec:   writeSec,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
