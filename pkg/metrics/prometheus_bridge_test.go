package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPrometheusClientHandlerServesRegistryMetrics(t *testing.T) {
	registry := NewRegistry()
	registry.Counter("diffs_applied").Add(3)
	registry.Gauge("pending_transitions").Set(1)

	handler := NewPrometheusClientHandler(registry, "arcadeum")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "arcadeum_diffs_applied") {
		t.Fatalf("expected counter in output, got: %s", body)
	}
	if !strings.Contains(body, "arcadeum_pending_transitions") {
		t.Fatalf("expected gauge in output, got: %s", body)
	}
}
