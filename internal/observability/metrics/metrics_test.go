package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/cards/{cardID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/cards/123", nil))

	body := scrape(t, m.Handler())
	if !strings.Contains(body, `route="/v1/cards/{cardID}"`) {
		t.Fatalf("expected route pattern label, got:\n%s", body)
	}
	if strings.Contains(body, "/v1/cards/123") {
		t.Fatalf("raw path leaked into labels")
	}
	if !strings.Contains(body, `status="404"`) {
		t.Fatalf("expected status label")
	}
}

func TestPipelineMetrics(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	p := m.Pipeline()
	p.ObserveStage(domain.StageDetection, 2*time.Second, nil)
	p.ObserveUpload("failed", domain.StageDetection)
	p.ObserveUpload("success", "")
	p.ObserveDispatch(errors.New("boom"))
	p.ObserveBreaker("tcgapi.get card", gobreaker.StateOpen)

	body := scrape(t, m.Handler())
	for _, want := range []string{
		`cards_pipeline_uploads_total{outcome="failed",service="api",stage="detection"} 1`,
		`cards_pipeline_uploads_total{outcome="success",service="api",stage="none"} 1`,
		`cards_enrichment_dispatch_total{service="api",status="error"} 1`,
		`cards_resilience_breaker_state{operation="tcgapi.get card",service="api"} 2`,
		`cards_pipeline_stage_duration_seconds_count{result="success",service="api",stage="detection"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestWorkerMetrics(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartRefresh()
	m.FinishRefresh(time.Second, nil)

	body := scrape(t, m.Handler())
	if !strings.Contains(body, `cards_worker_price_refresh_total{service="worker",status="success"} 1`) {
		t.Fatalf("missing refresh counter in:\n%s", body)
	}
	if !strings.Contains(body, `cards_worker_price_refresh_in_flight{service="worker"} 0`) {
		t.Fatalf("in-flight gauge should be back to zero")
	}
}
