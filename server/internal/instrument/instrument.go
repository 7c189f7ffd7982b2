// SPDX-FileCopyrightText: Copyright (C) 2026 The clipwire authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package instrument exposes prometheus metrics for the relay.
package instrument

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/op/go-logging.v1"
)

var (
	updatesRelayed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clipwire",
			Name:      "updates_relayed_total",
			Subsystem: "server",
			Help:      "Number of clipboard updates enqueued to recipients",
		},
	)
	updatesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clipwire",
			Name:      "updates_received_total",
			Subsystem: "server",
			Help:      "Number of clipboard updates received from clients",
		},
	)
	broadcastsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clipwire",
			Name:      "broadcasts_dropped_total",
			Subsystem: "server",
			Help:      "Number of updates dropped due to a full recipient queue",
		},
	)
	connectedSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clipwire",
			Name:      "connected_sessions",
			Subsystem: "server",
			Help:      "Number of handshake-completed sessions",
		},
	)
)

func init() {
	prometheus.MustRegister(updatesRelayed)
	prometheus.MustRegister(updatesReceived)
	prometheus.MustRegister(broadcastsDropped)
	prometheus.MustRegister(connectedSessions)
}

// UpdateRelayed increments the relayed updates counter.
func UpdateRelayed() {
	updatesRelayed.Inc()
}

// UpdateReceived increments the received updates counter.
func UpdateReceived() {
	updatesReceived.Inc()
}

// BroadcastDropped increments the dropped broadcasts counter.
func BroadcastDropped() {
	broadcastsDropped.Inc()
}

// SetConnectedSessions records the current session count.
func SetConnectedSessions(n int) {
	connectedSessions.Set(float64(n))
}

// StartMetricsListener exposes the registered metrics over HTTP on addr.
func StartMetricsListener(addr string, log *logging.Logger) {
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Errorf("metrics listener failed: %v", err)
		}
	}()
}
