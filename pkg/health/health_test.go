package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func staticCheck(status Status, message string) Check {
	return func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: status, Message: message}
	}
}

func TestRunAggregatesWorstStatus(t *testing.T) {
	c := NewChecker()
	c.Register("store", staticCheck(StatusUp, ""))
	c.Register("agent", staticCheck(StatusDegraded, "no credentials"))

	report := c.Run(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("status = %q, want degraded", report.Status)
	}

	c.Register("store", staticCheck(StatusDown, "connection refused"))
	report = c.Run(context.Background())
	if report.Status != StatusDown {
		t.Errorf("status = %q, want down", report.Status)
	}
	if report.Components["agent"].Status != StatusDegraded {
		t.Errorf("agent = %+v", report.Components["agent"])
	}
}

func TestReadyHandlerDegradedStillServes(t *testing.T) {
	// Missing agent credentials degrade the instance but must not pull it
	// out of rotation.
	c := NewChecker()
	c.Register("store", staticCheck(StatusUp, ""))
	c.Register("agent", staticCheck(StatusDegraded, "fallback agent disabled"))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Status != StatusDegraded {
		t.Errorf("report status = %q", report.Status)
	}
}

func TestReadyHandlerDownReturns503(t *testing.T) {
	c := NewChecker()
	c.Register("store", staticCheck(StatusDown, "connection refused"))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
