package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.ObserveAPI("GET", "/api/customers", "200", 20*time.Millisecond)
	m.ObserveAPI("PUT", "/api/products/:id", "500", time.Second)
	m.ObserveAggregateOperation("Northwind.Graph.SaveGraph", "success", 3*time.Millisecond)
	m.IncAggregateConflict("Northwind.Graph.SaveGraph")
	m.IncChangeEntry("Product", "Modified")

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`nw_api_requests_total{method="GET",route="/api/customers",status="200"} 1.000000`,
		`nw_api_requests_error_total 1.000000`,
		`nw_aggregate_operations_total{operation="Northwind.Graph.SaveGraph",status="success"} 1.000000`,
		`nw_aggregate_conflicts_total{operation="Northwind.Graph.SaveGraph"} 1.000000`,
		`nw_change_log_entries_total{entity="Product",state="Modified"} 1.000000`,
		`nw_api_request_duration_seconds_bucket{method="GET",route="/api/customers",status="200",le="0.025"} 1`,
		"# TYPE nw_aggregate_operation_duration_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in exposition:\n%s", want, out)
		}
	}
	if got := m.AggregateConflicts("Northwind.Graph.SaveGraph"); got != 1 {
		t.Fatalf("AggregateConflicts = %v, want 1", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightDec()
	m.ObserveAggregateOperation("op", "success", time.Millisecond)
	m.IncChangeNotice("published")

	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestInflightGauge(t *testing.T) {
	m := New()
	m.ApiInflightInc()
	m.ApiInflightInc()
	m.ApiInflightDec()
	if got := m.apiInflight.Value(); got != 1 {
		t.Fatalf("inflight = %v, want 1", got)
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route", "status"}, []string{`/a"b`})
	want := `{route="/a\"b",status="unknown"}`
	if got != want {
		t.Fatalf("labelString = %s, want %s", got, want)
	}
	if got := withLe("", "+Inf"); got != `{le="+Inf"}` {
		t.Fatalf("withLe = %s", got)
	}
}
