// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package metrics exposes Prometheus instruments for the classification engine.
//
// Instruments are registered on the default registry at package init and
// served by Handler. Recording helpers are safe for concurrent use and cheap
// enough to call on every classification.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "classit"

var (
	// signalFailuresTotal counts scoring signals that degraded to zero.
	// Labels: signal (lexical, keyword, domain, embedding), level
	signalFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scoring",
		Name:      "signal_failures_total",
		Help:      "Scoring signals that failed and contributed zero",
	}, []string{"signal", "level"})

	// embeddingCacheTotal counts vector cache lookups.
	// Labels: result (hit, miss)
	embeddingCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding_cache",
		Name:      "lookups_total",
		Help:      "Embedding cache lookups by result",
	}, []string{"result"})

	// remoteCallSeconds measures remote model calls.
	// Labels: service (embedding, generation), outcome (ok, error)
	remoteCallSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "remote",
		Name:      "call_seconds",
		Help:      "Latency of remote model calls",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"service", "outcome"})

	// escalationsTotal counts escalation decisions.
	// Labels: outcome (skipped, llm_rerank, fallback)
	escalationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "escalation",
		Name:      "decisions_total",
		Help:      "Escalation decisions by outcome",
	}, []string{"outcome"})

	// classificationsTotal counts completed classifications.
	// Labels: result (classified, unknown)
	classificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "classifier",
		Name:      "classifications_total",
		Help:      "Completed classifications by result",
	}, []string{"result"})

	// classificationSeconds measures end-to-end classification latency.
	classificationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "classifier",
		Name:      "classification_seconds",
		Help:      "End-to-end classification latency",
		Buckets:   prometheus.DefBuckets,
	})
)

// RecordSignalFailure records a scoring signal that degraded to zero.
func RecordSignalFailure(signal, level string) {
	signalFailuresTotal.WithLabelValues(signal, level).Inc()
}

// RecordCacheLookup records cache hits and misses.
func RecordCacheLookup(hits, misses int) {
	if hits > 0 {
		embeddingCacheTotal.WithLabelValues("hit").Add(float64(hits))
	}
	if misses > 0 {
		embeddingCacheTotal.WithLabelValues("miss").Add(float64(misses))
	}
}

// ObserveRemoteCall records the latency of a remote call started at start.
func ObserveRemoteCall(service string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	remoteCallSeconds.WithLabelValues(service, outcome).Observe(time.Since(start).Seconds())
}

// RecordEscalation records an escalation outcome.
func RecordEscalation(outcome string) {
	escalationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveClassification records a finished classification.
func ObserveClassification(start time.Time, unknown bool) {
	result := "classified"
	if unknown {
		result = "unknown"
	}
	classificationsTotal.WithLabelValues(result).Inc()
	classificationSeconds.Observe(time.Since(start).Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
