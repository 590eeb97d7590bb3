package main

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/zabeloliver/wethermo-remote/wethermo-api/wethermoStructs"
)

func TestWriteStatusToMetricsRegistry(t *testing.T) {
	m := NewWethermoMetrics(prometheus.NewRegistry())

	var report wethermoStructs.StatusReport
	body := `{"temp": 21.5, "relay": true, "mode": "auto", "crono": 99}`
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	m.writeStatusToMetricsRegistry(report)

	if v := testutil.ToFloat64(m.statusField.WithLabelValues("temp")); v != 21.5 {
		t.Errorf("unexpected temp gauge %v", v)
	}
	if v := testutil.ToFloat64(m.statusField.WithLabelValues("relay")); v != 1 {
		t.Errorf("unexpected relay gauge %v", v)
	}
	// temp and relay only: text fields and crono have no gauge
	if n := testutil.CollectAndCount(m.statusField); n != 2 {
		t.Errorf("expected 2 status series, got %d", n)
	}
	if v := testutil.ToFloat64(m.requests.WithLabelValues("info", "ok")); v != 1 {
		t.Errorf("unexpected info counter %v", v)
	}
}

func TestWriteAckAndFailure(t *testing.T) {
	m := NewWethermoMetrics(prometheus.NewRegistry())

	m.writeAckToMetricsRegistry(wethermoStructs.CommandOff, "ok")
	m.writeFailureToMetricsRegistry("heat", errors.New("timeout"))

	if v := testutil.ToFloat64(m.requests.WithLabelValues("off", "ok")); v != 1 {
		t.Errorf("unexpected off counter %v", v)
	}
	if v := testutil.ToFloat64(m.requests.WithLabelValues("heat", "error")); v != 1 {
		t.Errorf("unexpected heat error counter %v", v)
	}
	if v := testutil.ToFloat64(m.lastAck.WithLabelValues("off")); v <= 0 {
		t.Errorf("expected ack timestamp, got %v", v)
	}
}
