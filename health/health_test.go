package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChecker_Aggregation(t *testing.T) {
	tests := []struct {
		name       string
		statuses   map[string]Status
		wantCode   int
		wantStatus Status
	}{
		{
			"all up",
			map[string]Status{"journal": StatusUp, "http": StatusUp},
			http.StatusOK, StatusUp,
		},
		{
			"one degraded",
			map[string]Status{"journal": StatusUp, "http": StatusDegraded},
			http.StatusOK, StatusDegraded,
		},
		{
			"one down",
			map[string]Status{"journal": StatusDown, "http": StatusUp},
			http.StatusServiceUnavailable, StatusDown,
		},
		{
			"registered but never set",
			map[string]Status{},
			http.StatusServiceUnavailable, StatusDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			c.Register("journal")
			c.Register("http")
			// Registered components default to down until set.
			for name, status := range tt.statuses {
				c.SetStatus(name, status)
			}

			rec := httptest.NewRecorder()
			c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status code = %d, want %d", rec.Code, tt.wantCode)
			}

			var body struct {
				Status Status `json:"status"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal body: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Fatalf("aggregate status = %q, want %q", body.Status, tt.wantStatus)
			}
		})
	}
}

func TestReadinessChecker(t *testing.T) {
	r := NewReadinessChecker()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("not-ready status code = %d, want 503", rec.Code)
	}

	r.SetReady(true)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready status code = %d, want 200", rec.Code)
	}
}
