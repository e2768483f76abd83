package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	recorder := httptest.NewRecorder()

	HealthCheck(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var result map[string]string
	parseJSONResponse(t, recorder, &result)
	if result["status"] != "ok" {
		t.Errorf("expected status ok, got %q", result["status"])
	}
}

func TestDayParam(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    string
		wantOK  bool
		wantNow bool
	}{
		{name: "explicit date", query: "?date=2026-03-02", want: "2026-03-02", wantOK: true},
		{name: "missing date defaults to today", query: "", wantNow: true, wantOK: true},
		{name: "malformed date rejected", query: "?date=03/02/2026", wantOK: false},
		{name: "non-date rejected", query: "?date=today", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/attendance"+tt.query, nil)
			day, ok := dayParam(req)
			if ok != tt.wantOK {
				t.Fatalf("got ok=%v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if tt.wantNow {
				if day != ledger.Today() {
					t.Errorf("expected today %s, got %s", ledger.Today(), day)
				}
				return
			}
			if day != tt.want {
				t.Errorf("got %s, want %s", day, tt.want)
			}
		})
	}
}
