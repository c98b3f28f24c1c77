// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
)

type appValidationMetrics struct {
	opsDrained    prometheus.Counter
	accepted      prometheus.Counter
	rejected      prometheus.Counter
	awaitingDeps  prometheus.Counter
	flushFailures prometheus.Counter
	passDuration  prometheus.Histogram
}

func newMetrics(registerer prometheus.Registerer) (*appValidationMetrics, error) {
	m := &appValidationMetrics{
		opsDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "app_validation_ops_drained",
			Help: "Number of ops drained from the validation limbo",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "app_validation_ops_accepted",
			Help: "Number of ops accepted by app validation",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "app_validation_ops_rejected",
			Help: "Number of ops rejected by app validation",
		}),
		awaitingDeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "app_validation_ops_awaiting_deps",
			Help: "Number of ops parked awaiting app dependencies",
		}),
		flushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "app_validation_flush_failures",
			Help: "Number of failed workspace flushes",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "app_validation_pass_duration_seconds",
			Help:    "Duration of app validation passes",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{
		m.opsDrained,
		m.accepted,
		m.rejected,
		m.awaitingDeps,
		m.flushFailures,
		m.passDuration,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
