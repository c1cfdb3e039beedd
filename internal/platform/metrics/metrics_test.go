package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestMetrics_ExpositionIncludesCounters(t *testing.T) {
	m := New()
	m.TransfersTotal.WithLabelValues("membership", "committed").Inc()
	m.SequenceFallbacks.WithLabelValues("grn").Inc()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := m.Handler()(c); err != nil {
		t.Fatalf("handler: %v", err)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "benefit_transfers_total") {
		t.Error("exposition missing benefit_transfers_total")
	}
	if !strings.Contains(body, "sequence_fallback_total") {
		t.Error("exposition missing sequence_fallback_total")
	}
}

func TestMiddleware_RecordsDuration(t *testing.T) {
	m := New()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/patients/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/patients/:id")

	handler := m.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}

	// A second registry scrape should now include the histogram series.
	mreq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	mc := e.NewContext(mreq, mrec)
	if err := m.Handler()(mc); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !strings.Contains(mrec.Body.String(), "http_request_duration_seconds") {
		t.Error("exposition missing http_request_duration_seconds")
	}
}
