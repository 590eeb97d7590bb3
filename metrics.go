package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zabeloliver/wethermo-remote/wethermo-api/wethermoStructs"
)

type PrometheusMetrics struct {
	statusField *prometheus.GaugeVec
	requests    *prometheus.CounterVec
	lastAck     *prometheus.GaugeVec
}

func NewWethermoMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		statusField: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wethermo_status_field",
				Help: "Last numeric value of a displayed status report field.",
			},
			[]string{"field"}),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wethermo_requests_total",
				Help: "Requests sent to the thermostat by operation and result.",
			},
			[]string{"operation", "result"},
		),
		lastAck: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wethermo_last_ack_timestamp_seconds",
				Help: "Unix time of the last acknowledged control request.",
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(m.statusField)
	reg.MustRegister(m.requests)
	reg.MustRegister(m.lastAck)
	return m
}

func (m *PrometheusMetrics) writeStatusToMetricsRegistry(report wethermoStructs.StatusReport) {
	m.requests.WithLabelValues("info", "ok").Inc()
	for _, f := range report.Fields {
		if f.Name == wethermoStructs.HiddenField {
			continue
		}
		switch v := f.Value.(type) {
		case float64:
			m.statusField.WithLabelValues(f.Name).Set(v)
		case bool:
			if v {
				m.statusField.WithLabelValues(f.Name).Set(1)
			} else {
				m.statusField.WithLabelValues(f.Name).Set(0)
			}
		default:
			// text fields have no gauge
		}
	}
}

func (m *PrometheusMetrics) writeAckToMetricsRegistry(cmd wethermoStructs.Command, _ wethermoStructs.ControlAck) {
	m.requests.WithLabelValues(string(cmd), "ok").Inc()
	m.lastAck.WithLabelValues(string(cmd)).Set(float64(time.Now().Unix()))
}

func (m *PrometheusMetrics) writeFailureToMetricsRegistry(op string, _ error) {
	m.requests.WithLabelValues(op, "error").Inc()
}
