package observability

import (
	"testing"
	"time"
)

func TestSnapshotAggregates(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets/:id", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/tickets/:id", "GET", 200, 30*time.Millisecond)
	m.RecordRequest("/auth/login", "POST", 401, time.Millisecond)
	m.RecordError("/auth/login", "POST", "INVALID_CREDENTIALS")

	snap := m.Snapshot()
	if len(snap.Requests) != 2 {
		t.Fatalf("expected 2 request keys, got %d", len(snap.Requests))
	}
	if snap.Requests[0].Key != "GET /tickets/:id 200" {
		t.Fatalf("unexpected ordering: %+v", snap.Requests)
	}
	if snap.Requests[0].Count != 2 || snap.Requests[0].AvgLatencyMs != 20 {
		t.Errorf("unexpected aggregate: %+v", snap.Requests[0])
	}
	if snap.Errors["POST /auth/login INVALID_CREDENTIALS"] != 1 {
		t.Errorf("error counter missing: %+v", snap.Errors)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordError("/", "GET", "X")
	if snap := m.Snapshot(); len(snap.Requests) != 0 {
		t.Fatalf("expected empty snapshot")
	}
}
