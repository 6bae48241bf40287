package arm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
)

// fakeDaemon records the requests a driver makes.
type fakeDaemon struct {
	t *testing.T

	mu       sync.Mutex
	requests []recordedRequest

	stateStatus int
	state       string
}

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

func newFakeDaemon(t *testing.T) (*fakeDaemon, *HTTPDriver) {
	t.Helper()
	d := &fakeDaemon{
		t:           t,
		stateStatus: http.StatusOK,
		state: `{"joint":[0,20,70,0,90,0],
			"pose":{"position":{"x":0.3,"y":0.0,"z":0.4},"euler":{"rx":3.14,"ry":0,"rz":0}}}`,
	}
	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(u.Port())
	driver := NewHTTPDriver(u.Hostname(), port)
	return d, driver
}

func (d *fakeDaemon) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&rec.Body)
	}
	d.mu.Lock()
	d.requests = append(d.requests, rec)
	d.mu.Unlock()

	switch r.URL.Path {
	case "/api/v1/state":
		w.WriteHeader(d.stateStatus)
		if d.stateStatus == http.StatusOK {
			w.Write([]byte(d.state))
		} else {
			w.Write([]byte(`{"error":"controller fault"}`))
		}
	case "/api/v1/info":
		w.Write([]byte(`{"firmware":"1.4.2","planner":"2.0"}`))
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (d *fakeDaemon) last() recordedRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.requests) == 0 {
		d.t.Fatal("No requests recorded")
	}
	return d.requests[len(d.requests)-1]
}

func TestHTTPDriver_SendJoint(t *testing.T) {
	daemon, driver := newFakeDaemon(t)

	cmd := JointCommand{Angles: []float64{0, 20, 70, 0, 90, 0}, Velocity: 50}
	if err := driver.Send(context.Background(), cmd); err != nil {
		t.Fatalf("Send: %v", err)
	}

	req := daemon.last()
	if req.Path != "/api/v1/movej" {
		t.Errorf("Expected movej endpoint, got %s", req.Path)
	}
	if req.Body["block"] != false {
		t.Error("Moves must be issued non-blocking")
	}
	if req.Body["velocity"] != float64(50) {
		t.Errorf("Velocity not forwarded: %v", req.Body["velocity"])
	}
}

func TestHTTPDriver_SendPose(t *testing.T) {
	daemon, driver := newFakeDaemon(t)

	cmd := PoseCommand{Target: Pose{X: 0.3, Z: 0.4}, Velocity: 50}
	if err := driver.Send(context.Background(), cmd); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if req := daemon.last(); req.Path != "/api/v1/movel" {
		t.Errorf("Expected movel endpoint, got %s", req.Path)
	}
}

func TestHTTPDriver_SendVelocity(t *testing.T) {
	daemon, driver := newFakeDaemon(t)

	cmd := VelocityCommand{Linear: [3]float64{0.1, 0, 0}}
	if err := driver.Send(context.Background(), cmd); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if req := daemon.last(); req.Path != "/api/v1/velocity" {
		t.Errorf("Expected velocity endpoint, got %s", req.Path)
	}
}

func TestHTTPDriver_StopAndClear(t *testing.T) {
	daemon, driver := newFakeDaemon(t)

	if err := driver.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if req := daemon.last(); req.Path != "/api/v1/stop" {
		t.Errorf("Expected stop endpoint, got %s", req.Path)
	}

	if err := driver.ClearErrors(context.Background()); err != nil {
		t.Fatalf("ClearErrors: %v", err)
	}
	if req := daemon.last(); req.Path != "/api/v1/clear_errors" {
		t.Errorf("Expected clear_errors endpoint, got %s", req.Path)
	}
}

func TestHTTPDriver_ReadState(t *testing.T) {
	_, driver := newFakeDaemon(t)

	state, err := driver.ReadState(context.Background())
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if len(state.Joints) != 6 || state.Joints[2] != 70 {
		t.Errorf("Joints not decoded: %v", state.Joints)
	}
	if state.Pose.X != 0.3 || state.Pose.RX != 3.14 {
		t.Errorf("Pose not decoded: %+v", state.Pose)
	}
}

func TestHTTPDriver_ReadStateAPIError(t *testing.T) {
	daemon, driver := newFakeDaemon(t)
	daemon.stateStatus = http.StatusInternalServerError

	_, err := driver.ReadState(context.Background())
	if err == nil {
		t.Fatal("Expected an error from a 500 response")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.Message != "controller fault" {
		t.Errorf("APIError fields: %+v", apiErr)
	}
}

func TestHTTPDriver_SoftwareInfo(t *testing.T) {
	_, driver := newFakeDaemon(t)

	info, err := driver.SoftwareInfo(context.Background())
	if err != nil {
		t.Fatalf("SoftwareInfo: %v", err)
	}
	if info["firmware"] != "1.4.2" {
		t.Errorf("Info not decoded: %v", info)
	}
}
