// Copyright 2015-2017 Piprate Limited
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

package ld

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "jsonld"

// LoaderMetrics holds Prometheus metrics for document loading.
// A nil *LoaderMetrics records nothing.
type LoaderMetrics struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEvictions prometheus.Counter
	retries        prometheus.Counter
	fetchDuration  *prometheus.HistogramVec
}

// NewLoaderMetrics creates loader metrics and registers them with reg.
// A nil reg leaves the metrics unregistered.
func NewLoaderMetrics(reg prometheus.Registerer) (*LoaderMetrics, error) {
	m := &LoaderMetrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "loader",
			Name:      "cache_hits_total",
			Help:      "Documents served from the loader cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "loader",
			Name:      "cache_misses_total",
			Help:      "Documents not found in the loader cache",
		}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "loader",
			Name:      "cache_evictions_total",
			Help:      "Cache entries dropped by expiry, size limit or invalidation",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "loader",
			Name:      "retries_total",
			Help:      "Document loads repeated after a retryable failure",
		}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "loader",
			Name:      "fetch_duration_seconds",
			Help:      "Remote document fetch latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.cacheHits, m.cacheMisses, m.cacheEvictions, m.retries, m.fetchDuration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *LoaderMetrics) observeHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *LoaderMetrics) observeMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *LoaderMetrics) observeEviction() {
	if m != nil {
		m.cacheEvictions.Inc()
	}
}

func (m *LoaderMetrics) observeRetry() {
	if m != nil {
		m.retries.Inc()
	}
}

func (m *LoaderMetrics) observeFetch(start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.fetchDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
