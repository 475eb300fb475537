package server

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	imported *prometheus.CounterVec
	receipts *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reembolso",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		imported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reembolso",
			Name:      "imported_transactions_total",
			Help:      "Parsed statement records by import result.",
		}, []string{"result"}),
		receipts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reembolso",
			Name:      "receipts_parsed_total",
			Help:      "Uploaded receipts by detected document kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(m.requests, m.imported, m.receipts)
	return m
}
