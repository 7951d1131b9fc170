package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deltasTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavepad_deltas_total",
			Help: "Deltas submitted by clients, by result (applied, rejected, failed).",
		},
		[]string{"result"},
	)

	transformDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wavepad_transform_depth",
			Help:    "Number of concurrent deltas a submission was transformed against.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		},
	)

	connectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wavepad_connected_clients",
			Help: "Clients connected over websocket.",
		},
	)

	openDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wavepad_open_documents",
			Help: "Documents loaded in memory.",
		},
	)
)
