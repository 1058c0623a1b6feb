package metrics

import (
	"testing"
	"time"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	// Disabled metrics must be callable without guards.
	m.IncCanvas("downloaded")
	m.AddBytes(1024)
	m.ObserveTransfer(time.Second)
	m.AddRetries(1)
	m.SetRateDelay(500 * time.Millisecond)

	if m.Handler() == nil {
		t.Error("nil metrics must still return a handler")
	}
}

func TestCollectorsRegistered(t *testing.T) {
	m := New()

	m.IncCanvas("downloaded")
	m.IncCanvas("skipped")
	m.AddBytes(2048)
	m.ObserveTransfer(250 * time.Millisecond)
	m.AddRetries(2)
	m.SetRateDelay(time.Second)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{
		"iiifdl_canvases_total",
		"iiifdl_bytes_downloaded_total",
		"iiifdl_transfer_duration_seconds",
		"iiifdl_retries_total",
		"iiifdl_rate_delay_seconds",
	} {
		if !found[name] {
			t.Errorf("collector %s not registered", name)
		}
	}
}

func TestAddBytesIgnoresNonPositive(t *testing.T) {
	m := New()
	m.AddBytes(0)
	m.AddBytes(-5)
	m.AddBytes(100)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() != "iiifdl_bytes_downloaded_total" {
			continue
		}
		if got := f.GetMetric()[0].GetCounter().GetValue(); got != 100 {
			t.Errorf("bytes total = %v, want 100", got)
		}
	}
}
