/*
metrics.go - Prometheus instrumentation for the allocation service

PURPOSE:
  Counters and gauges the on-call reads when an upload or run misbehaves:
  how many uploads landed (and failed), how many runs completed by result,
  how much weight each run moved, and what the live dataset sizes are.
  Exposed at /metrics.

Each Handler owns its own registry so tests can build handlers freely
without double-registration panics on the default registry.
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	registry *prometheus.Registry

	uploadsTotal   *prometheus.CounterVec // labels: kind, result
	runsTotal      *prometheus.CounterVec // label: result
	allocatedKilos prometheus.Counter
	batchesLoaded  prometheus.Gauge
	ordersLoaded   prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "allocation_uploads_total",
			Help: "Dataset uploads by kind (stock, orders) and result (ok, invalid, conflict).",
		}, []string{"kind", "result"}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "allocation_runs_total",
			Help: "Allocation runs by result (ok, conflict, error).",
		}, []string{"result"}),
		allocatedKilos: factory.NewCounter(prometheus.CounterOpts{
			Name: "allocation_allocated_kilograms_total",
			Help: "Total weight allocated across committed runs, in KG.",
		}),
		batchesLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "allocation_batches_loaded",
			Help: "Batches in the current stock dataset.",
		}),
		ordersLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "allocation_orders_loaded",
			Help: "Orders in the current orders dataset.",
		}),
	}
}
