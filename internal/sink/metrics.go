// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sink publishes readings to Prometheus, WebSocket clients and Redis.
package sink

import (
	"net/http"

	"github.com/Thermoquad/heliograph/internal/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exposes the latest readings as Prometheus gauges. Each exporter
// owns its registry so several can coexist in one process.
type Exporter struct {
	registry *prometheus.Registry
	gauges   map[string]prometheus.Gauge
	info     *prometheus.GaugeVec

	rejections *prometheus.CounterVec
	overflows  prometheus.Counter
	published  prometheus.Counter
}

// NewExporter creates an exporter with one gauge per numeric and binary key
func NewExporter(namespace string) *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		gauges:   map[string]prometheus.Gauge{},
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "text_info",
			Help:      "Text readings, value always 1",
		}, []string{"key", "value"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_rejections_total",
			Help:      "Frames rejected at close, by reason",
		}, []string{"reason"}),
		overflows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "line_overflows_total",
			Help:      "Lines abandoned for exceeding the maximum length",
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_published_total",
			Help:      "Reading messages published",
		}),
	}

	for _, entry := range report.Catalogue() {
		if entry.Kind == report.KindText {
			continue
		}
		name := entry.Key
		if entry.Unit != "" {
			name += "_" + unitSuffix(entry.Unit)
		}
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      entry.Help,
		})
		e.gauges[entry.Key] = g
		e.registry.MustRegister(g)
	}

	e.registry.MustRegister(e.info, e.rejections, e.overflows, e.published)
	return e
}

func unitSuffix(unit string) string {
	switch unit {
	case "V":
		return "volts"
	case "A":
		return "amperes"
	case "W":
		return "watts"
	case "kWh":
		return "kilowatt_hours"
	case "%":
		return "percent"
	case "s":
		return "seconds"
	}
	return unit
}

// Update sets the gauges for every reading in the message. Keys absent from
// the message keep their previous value.
func (e *Exporter) Update(m report.Message) {
	for key, v := range m.Sensors {
		if g, ok := e.gauges[key]; ok {
			g.Set(v)
		}
	}
	for key, v := range m.Binary {
		if g, ok := e.gauges[key]; ok {
			if v {
				g.Set(1)
			} else {
				g.Set(0)
			}
		}
	}
	if len(m.Text) > 0 {
		e.info.Reset()
		for key, v := range m.Text {
			e.info.WithLabelValues(key, v).Set(1)
		}
	}
	e.published.Inc()
}

// ObserveRejection counts a rejected frame
func (e *Exporter) ObserveRejection(reason string) {
	e.rejections.WithLabelValues(reason).Inc()
}

// ObserveOverflow counts an abandoned line
func (e *Exporter) ObserveOverflow() {
	e.overflows.Inc()
}

// Gauge returns the gauge for a key
func (e *Exporter) Gauge(key string) (prometheus.Gauge, bool) {
	g, ok := e.gauges[key]
	return g, ok
}

// Registry returns the exporter's registry
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler returns the /metrics handler
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
