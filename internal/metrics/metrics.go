// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes the server's Prometheus instrumentation. All
// collectors are registered on a private registry so tests importing this
// package never collide with the default global one.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// CommandsTotal counts dispatched commands by name and outcome
	// ("ok" or "error").
	CommandsTotal = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "zedis",
		Name:      "commands_total",
		Help:      "Commands dispatched, by command name and outcome.",
	}, []string{"command", "outcome"})

	// ConnectedClients tracks currently open client connections.
	ConnectedClients = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: "zedis",
		Name:      "connected_clients",
		Help:      "Open client connections.",
	})

	// AOLRecordsTotal counts records handed to the append-only log writer.
	AOLRecordsTotal = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "zedis",
		Name:      "aol_records_total",
		Help:      "Records appended to the append-only log.",
	})

	// SnapshotDuration observes how long SAVE takes.
	SnapshotDuration = promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: "zedis",
		Name:      "snapshot_duration_seconds",
		Help:      "Wall time of snapshot writes.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	// PubSubDropped counts subscribers evicted for lagging.
	PubSubDropped = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "zedis",
		Name:      "pubsub_dropped_subscribers_total",
		Help:      "Subscribers dropped because their backlog overflowed.",
	})
)

// RegisterKeyspaceSize exports the live key count via a gauge function, so
// scrapes read the current value instead of a sampled one.
func RegisterKeyspaceSize(size func() int) {
	promauto.With(registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "zedis",
		Name:      "keyspace_keys",
		Help:      "Keys currently in the keyspace.",
	}, func() float64 { return float64(size()) })
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
