// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

// Package telemetry exposes process-level Prometheus metrics for the agent.
package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/config"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/util/log"
)

var (
	// ReadsTotal counts protocol reads by protocol and result.
	ReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "neuract",
		Name:      "reads_total",
		Help:      "Protocol reads performed by job workers.",
	}, []string{"protocol", "result"})

	// ReadLatency observes protocol read latency.
	ReadLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "neuract",
		Name:      "read_latency_seconds",
		Help:      "Latency of protocol reads.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"protocol"})

	// RowsWrittenTotal counts rows persisted per provider.
	RowsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "neuract",
		Name:      "rows_written_total",
		Help:      "Rows written to storage targets.",
	}, []string{"provider"})

	// WriteLatency observes storage batch insert latency.
	WriteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "neuract",
		Name:      "write_latency_seconds",
		Help:      "Latency of storage batch inserts.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"provider"})

	// JobsRunning gauges currently running jobs.
	JobsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "neuract",
		Name:      "jobs_running",
		Help:      "Number of running logging jobs.",
	})

	// TriggersFiredTotal counts unsuppressed trigger fires.
	TriggersFiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "neuract",
		Name:      "triggers_fired_total",
		Help:      "Trigger fires that resulted in a write decision.",
	})
)

// ObserveRead records one protocol read in the process metrics.
func ObserveRead(protocol string, latency time.Duration, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	ReadsTotal.WithLabelValues(protocol, result).Inc()
	if ok {
		ReadLatency.WithLabelValues(protocol).Observe(latency.Seconds())
	}
}

// ObserveWrite records one storage batch insert.
func ObserveWrite(provider string, latency time.Duration, rows int) {
	RowsWrittenTotal.WithLabelValues(provider).Add(float64(rows))
	WriteLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// Serve starts the metrics endpoint when telemetry is enabled. It returns the
// server so the caller can shut it down.
func Serve() *http.Server {
	if !config.Neuract.GetBool("telemetry.enabled") {
		return nil
	}
	port := config.Neuract.GetInt("telemetry.port")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("telemetry server: %v", err) //nolint:errcheck
		}
	}()

	log.Infof("telemetry serving on :%d", port)
	return srv
}
