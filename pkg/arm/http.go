package arm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/armkit/go-armteleop/internal/httpc"
	"github.com/armkit/go-armteleop/internal/log"
)

// HTTPDriver implements Driver against the controller daemon's HTTP API.
// This is the primary driver used for real arms.
type HTTPDriver struct {
	BaseURL string

	client *http.Client
	stream *StateStream // optional push stream, may be nil
}

// NewHTTPDriver creates an HTTP driver for the daemon at host:port.
func NewHTTPDriver(host string, port int) *HTTPDriver {
	return &HTTPDriver{
		BaseURL: fmt.Sprintf("http://%s:%d", host, port),
		client:  httpc.ControlClient,
	}
}

// AttachStream makes the driver prefer state snapshots from the given
// push stream, falling back to HTTP GET when the stream has no data.
func (d *HTTPDriver) AttachStream(s *StateStream) {
	d.stream = s
}

// Send dispatches a motion command to the daemon. Joint commands map to
// the joint-space move endpoint, pose commands to linear moves, velocity
// commands to the twist endpoint. All moves are issued non-blocking so
// the next cycle can supersede them.
func (d *HTTPDriver) Send(ctx context.Context, cmd MotionCommand) error {
	switch c := cmd.(type) {
	case JointCommand:
		return d.post(ctx, "/api/v1/movej", map[string]any{
			"joints":   c.Angles,
			"velocity": c.Velocity,
			"block":    false,
		})
	case PoseCommand:
		return d.post(ctx, "/api/v1/movel", map[string]any{
			"pose":     c.Target,
			"velocity": c.Velocity,
			"block":    false,
		})
	case VelocityCommand:
		return d.post(ctx, "/api/v1/velocity", map[string]any{
			"linear":  c.Linear,
			"angular": c.Angular,
		})
	default:
		return fmt.Errorf("arm: unsupported command %T", cmd)
	}
}

// Stop immediately halts all motion. It uses its own request so it can
// be issued while a Send is still in flight.
func (d *HTTPDriver) Stop(ctx context.Context) error {
	return d.post(ctx, "/api/v1/stop", nil)
}

// ClearErrors clears the daemon's latched fault state.
func (d *HTTPDriver) ClearErrors(ctx context.Context) error {
	return d.post(ctx, "/api/v1/clear_errors", nil)
}

// ReadState returns the latest arm state, preferring the push stream.
func (d *HTTPDriver) ReadState(ctx context.Context) (State, error) {
	if d.stream != nil {
		if st, ok := d.stream.Latest(); ok {
			return st, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+"/api/v1/state", nil)
	if err != nil {
		return State{}, fmt.Errorf("arm: build state request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return State{}, fmt.Errorf("arm: state request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return State{}, readAPIError(resp, "/api/v1/state")
	}

	var payload stateMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return State{}, fmt.Errorf("arm: decode state: %w", err)
	}
	return payload.State(), nil
}

// SoftwareInfo returns the daemon's version report as a flat map.
func (d *HTTPDriver) SoftwareInfo(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+"/api/v1/info", nil)
	if err != nil {
		return nil, fmt.Errorf("arm: build info request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arm: info request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp, "/api/v1/info")
	}

	var info map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("arm: decode info: %w", err)
	}
	return info, nil
}

// Close releases the attached stream, if any. The HTTP client is shared
// and stays open.
func (d *HTTPDriver) Close() error {
	if d.stream != nil {
		d.stream.Close()
	}
	return nil
}

func (d *HTTPDriver) post(ctx context.Context, endpoint string, payload map[string]any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("arm: marshal %s payload: %w", endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("arm: build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("arm: %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return readAPIError(resp, endpoint)
	}
	return nil
}

func readAPIError(resp *http.Response, endpoint string) error {
	var msg struct {
		Error string `json:"error"`
	}
	// Best effort; an empty message is fine.
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&msg); err != nil {
		log.Debug("arm: undecodable error body", "endpoint", endpoint, "status", resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: msg.Error}
}

// stateMessage mirrors the daemon's state payload layout.
type stateMessage struct {
	Joint []float64 `json:"joint"`
	Pose  struct {
		Position struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
			Z float64 `json:"z"`
		} `json:"position"`
		Euler struct {
			RX float64 `json:"rx"`
			RY float64 `json:"ry"`
			RZ float64 `json:"rz"`
		} `json:"euler"`
	} `json:"pose"`
}

// State converts the wire layout to a State snapshot.
func (m stateMessage) State() State {
	return State{
		Joints: m.Joint,
		Pose: Pose{
			X: m.Pose.Position.X, Y: m.Pose.Position.Y, Z: m.Pose.Position.Z,
			RX: m.Pose.Euler.RX, RY: m.Pose.Euler.RY, RZ: m.Pose.Euler.RZ,
		},
	}
}
