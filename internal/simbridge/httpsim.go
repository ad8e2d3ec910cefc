package simbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
)

// PelvisFallThreshold is the pelvis height below which a humanoid
// backend is considered fallen and reset to its standing keyframe (spec
// §4.9 "Fall recovery").
const PelvisFallThreshold = 0.3

// StandingPelvisZ is the pelvis height restored on fall recovery.
const StandingPelvisZ = 0.9

// HTTPBridge is the optional real/simulated-robot Actuator backend,
// talking to an external simulator over HTTP the same way
// adapter.SimulatorClient talks to the Go simulator ROJ API: small
// per-endpoint methods over a shared *http.Client with a fixed timeout.
type HTTPBridge struct {
	baseURL    string
	httpClient *http.Client
}

var _ Actuator = (*HTTPBridge)(nil)

// NewHTTPBridge creates a client for a real simulator API at baseURL.
func NewHTTPBridge(baseURL string) *HTTPBridge {
	return &HTTPBridge{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (b *HTTPBridge) Start(ctx context.Context) error {
	return b.post(ctx, "/start", nil, nil)
}

func (b *HTTPBridge) Stop() error {
	return b.post(context.Background(), "/stop", nil, nil)
}

type resetRequest struct {
	Starts map[core.RobotID]core.Pose `json:"starts"`
}

func (b *HTTPBridge) Reset(starts map[core.RobotID]core.Pose) error {
	return b.post(context.Background(), "/reset", resetRequest{Starts: starts}, nil)
}

type executeRequest struct {
	Action  core.RobotAction `json:"action"`
	RobotID core.RobotID     `json:"robot_id"`
}

type stateResponse struct {
	Pose    core.Pose `json:"pose"`
	Holding bool      `json:"holding"`
}

// Execute posts the requested action and applies fall recovery to the
// returned readback before handing it back to the caller (spec §4.9).
func (b *HTTPBridge) Execute(ctx context.Context, action core.RobotAction, id core.RobotID) (State, error) {
	var resp stateResponse
	if err := b.post(ctx, "/execute", executeRequest{Action: action, RobotID: id}, &resp); err != nil {
		return State{}, err
	}

	st := State{Pose: resp.Pose, Holding: resp.Holding}
	if st.Pose.Z < PelvisFallThreshold {
		if err := b.recoverFromFall(ctx, id); err != nil {
			return st, err
		}
		st.Pose.Z = StandingPelvisZ
	}
	return st, nil
}

func (b *HTTPBridge) recoverFromFall(ctx context.Context, id core.RobotID) error {
	return b.post(ctx, "/recover", executeRequest{RobotID: id}, nil)
}

// GetState queries a single robot's current readback.
func (b *HTTPBridge) GetState(id core.RobotID) (State, bool) {
	var resp stateResponse
	url := fmt.Sprintf("%s/state?robot_id=%s", b.baseURL, id)
	if err := b.get(url, &resp); err != nil {
		return State{}, false
	}
	return State{Pose: resp.Pose, Holding: resp.Holding}, true
}

// GetAllStates queries every robot's current readback.
func (b *HTTPBridge) GetAllStates() map[core.RobotID]State {
	var resp map[core.RobotID]stateResponse
	if err := b.get(b.baseURL+"/states", &resp); err != nil {
		return nil
	}
	out := make(map[core.RobotID]State, len(resp))
	for id, s := range resp {
		out[id] = State{Pose: s.Pose, Holding: s.Holding}
	}
	return out
}

func (b *HTTPBridge) post(ctx context.Context, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("simbridge: %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("simbridge: %s returned %d", path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (b *HTTPBridge) get(url string, out any) error {
	resp, err := b.httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("simbridge: GET %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("simbridge: GET %s returned %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
