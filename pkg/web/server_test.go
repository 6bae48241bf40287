package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/armkit/go-armteleop/pkg/safety"
	"github.com/armkit/go-armteleop/pkg/teleop"
)

func newTestServer() *Server {
	return NewServer(":0", safety.DefaultLimits(), "RM65")
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer()
	s.Publish(teleop.Snapshot{
		ID:    "abc",
		Phase: teleop.PhaseArmed,
		Mode:  teleop.ModeCartesian,
	}, safety.Counters{Accepted: 3})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status %d", resp.StatusCode)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if status.Session.ID != "abc" || status.Session.Phase != teleop.PhaseArmed {
		t.Errorf("Session not reported: %+v", status.Session)
	}
	if status.Suppressions.Accepted != 3 {
		t.Errorf("Counters not reported: %+v", status.Suppressions)
	}
	if status.Model != "RM65" {
		t.Errorf("Model not reported: %q", status.Model)
	}
}

func TestHandleSuppressions(t *testing.T) {
	s := newTestServer()
	s.Publish(teleop.Snapshot{}, safety.Counters{EStopSuppressed: 7})

	req := httptest.NewRequest(http.MethodGet, "/api/suppressions", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()

	var counters safety.Counters
	if err := json.NewDecoder(resp.Body).Decode(&counters); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if counters.EStopSuppressed != 7 {
		t.Errorf("Expected 7 estop suppressions, got %+v", counters)
	}
}

func TestHandleLimits(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/limits", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()

	var limits safety.Limits
	if err := json.NewDecoder(resp.Body).Decode(&limits); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if limits.MaxLinear != 0.5 || limits.Workspace == nil {
		t.Errorf("Limits not reported: %+v", limits)
	}
}

func TestHandleEStop(t *testing.T) {
	s := newTestServer()

	fired := 0
	s.OnEStop = func() { fired++ }

	req := httptest.NewRequest(http.MethodPost, "/api/estop", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", resp.StatusCode)
	}
	if fired != 1 {
		t.Errorf("EStop callback fired %d times", fired)
	}
}

func TestHandleEStopUnwired(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/estop", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a callback, got %d", resp.StatusCode)
	}
}
