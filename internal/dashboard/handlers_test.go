package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestStatsHandlerMalformedParamsFallBack(t *testing.T) {
	q := &stubQueries{totalUsers: 12}
	h := &Handler{Svc: &Service{Q: q, Now: statsNow}, Log: zerolog.Nop()}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard?range=bogus&year=abc&month=99&day=not-a-date", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Stats Stats `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Stats.Range != RangeMonth {
		t.Fatalf("expected month fallback, got %s", resp.Stats.Range)
	}
	if resp.Stats.Customers.TotalUsers != 12 {
		t.Fatalf("unexpected customers payload: %+v", resp.Stats.Customers)
	}
}

func TestStatsHandlerAggregationFailure(t *testing.T) {
	q := &stubQueries{ordersErr: errors.New("db down")}
	h := &Handler{Svc: &Service{Q: q, Now: statsNow}, Log: zerolog.Nop()}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard?range=month", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
