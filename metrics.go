package main

import (
	"net/http"

	"github.com/aquilax/usernotes/node"
	"github.com/aquilax/usernotes/usernote"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry    *prometheus.Registry
	submissions *prometheus.CounterVec
	logReads    prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "usernotes_submissions_total",
			Help: "Add-note submissions by outcome.",
		}, []string{"outcome"}),
		logReads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "usernotes_log_reads_total",
			Help: "Note logs read from the store.",
		}),
	}
	m.registry.MustRegister(m.submissions, m.logReads)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) submission(outcome usernote.Outcome) {
	m.submissions.WithLabelValues(string(outcome)).Inc()
}

// meteredMeta counts note log reads on their way to the store.
type meteredMeta struct {
	usernote.MetaStore
	reads prometheus.Counter
}

func (m meteredMeta) GetUserMeta(userID node.UserID, key string) ([]byte, error) {
	m.reads.Inc()
	return m.MetaStore.GetUserMeta(userID, key)
}
