package socketrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/harmonia-vision/harmonia/internal/model"
)

// Client implements model.ControlAPI over a Unix domain socket using JSON-RPC 2.0.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	nextID  int
	scanner *bufio.Scanner
	encoder *json.Encoder
}

var _ model.ControlAPI = (*Client)(nil)

// Dial connects to the socket RPC server at the given path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("socketrpc: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	return &Client{
		conn:    conn,
		scanner: scanner,
		encoder: json.NewEncoder(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call performs a JSON-RPC call and unmarshals the result into dest.
// The connection deadline follows ctx, or requestTimeout when ctx has none.
func (c *Client) call(ctx context.Context, method string, params interface{}, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	paramsData, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("socketrpc: marshal params: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  paramsData,
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(requestTimeout)
	}
	c.conn.SetDeadline(deadline)
	defer c.conn.SetDeadline(time.Time{})

	if err := c.encoder.Encode(req); err != nil {
		return fmt.Errorf("socketrpc: send: %w", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("socketrpc: read: %w", err)
		}
		return fmt.Errorf("socketrpc: connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("socketrpc: unmarshal response: %w", err)
	}
	if resp.ID != id {
		return fmt.Errorf("socketrpc: response id %d, want %d", resp.ID, id)
	}

	if resp.Error != nil {
		return resp.Error
	}

	if dest != nil {
		if err := json.Unmarshal(resp.Result, dest); err != nil {
			return fmt.Errorf("socketrpc: unmarshal result: %w", err)
		}
	}
	return nil
}

func (c *Client) FullState(ctx context.Context) (model.FullState, error) {
	var result model.FullState
	err := c.call(ctx, "FullState", nil, &result)
	return result, err
}

func (c *Client) CaptureSnapshot(ctx context.Context, force bool) error {
	return c.call(ctx, "CaptureSnapshot", map[string]interface{}{"Force": force}, nil)
}

func (c *Client) ReadCurrentSettings(ctx context.Context) (model.EditorSettings, error) {
	var result model.EditorSettings
	err := c.call(ctx, "ReadCurrentSettings", nil, &result)
	return result, err
}

func (c *Client) ApplySettings(ctx context.Context, s model.EditorSettings) error {
	return c.call(ctx, "ApplySettings", map[string]interface{}{"Settings": s}, nil)
}

func (c *Client) PreviewSettings(ctx context.Context, s model.EditorSettings) error {
	return c.call(ctx, "PreviewSettings", map[string]interface{}{"Settings": s}, nil)
}

func (c *Client) SaveSettings(ctx context.Context, s model.EditorSettings) error {
	return c.call(ctx, "SaveSettings", map[string]interface{}{"Settings": s}, nil)
}

func (c *Client) Revert(ctx context.Context) error {
	return c.call(ctx, "Revert", nil, nil)
}

func (c *Client) RevertAndClear(ctx context.Context) error {
	return c.call(ctx, "RevertAndClear", nil, nil)
}

func (c *Client) ClearSnapshot(ctx context.Context) error {
	return c.call(ctx, "ClearSnapshot", nil, nil)
}

func (c *Client) SavePrescription(ctx context.Context, p model.Prescription) error {
	return c.call(ctx, "SavePrescription", map[string]interface{}{"Prescription": p}, nil)
}

func (c *Client) ClearPrescription(ctx context.Context) error {
	return c.call(ctx, "ClearPrescription", nil, nil)
}

func (c *Client) PauseState(ctx context.Context) (model.PauseState, error) {
	var result model.PauseState
	err := c.call(ctx, "PauseState", nil, &result)
	return result, err
}

func (c *Client) PauseSettings(ctx context.Context) (model.PauseSettings, error) {
	var result model.PauseSettings
	err := c.call(ctx, "PauseSettings", nil, &result)
	return result, err
}

func (c *Client) PauseStats(ctx context.Context) (model.StatsSummary, error) {
	var result model.StatsSummary
	err := c.call(ctx, "PauseStats", nil, &result)
	return result, err
}

func (c *Client) TogglePause(ctx context.Context) (model.PauseState, error) {
	var result model.PauseState
	err := c.call(ctx, "TogglePause", nil, &result)
	return result, err
}

func (c *Client) TriggerBreakNow(ctx context.Context) (model.PauseState, error) {
	var result model.PauseState
	err := c.call(ctx, "TriggerBreakNow", nil, &result)
	return result, err
}

func (c *Client) SnoozeBreak(ctx context.Context) (model.PauseState, error) {
	var result model.PauseState
	err := c.call(ctx, "SnoozeBreak", nil, &result)
	return result, err
}

func (c *Client) DismissBreak(ctx context.Context) (model.PauseState, error) {
	var result model.PauseState
	err := c.call(ctx, "DismissBreak", nil, &result)
	return result, err
}

func (c *Client) UpdatePauseSettings(ctx context.Context, patch model.PauseSettingsPatch) (model.PauseSettings, error) {
	var result model.PauseSettings
	err := c.call(ctx, "UpdatePauseSettings", map[string]interface{}{"Patch": patch}, &result)
	return result, err
}

func (c *Client) ResetStats(ctx context.Context) error {
	return c.call(ctx, "ResetStats", nil, nil)
}

func (c *Client) BreakEvents(ctx context.Context, days int) ([]model.BreakEvent, error) {
	var result []model.BreakEvent
	err := c.call(ctx, "BreakEvents", map[string]interface{}{"Days": days}, &result)
	return result, err
}

func (c *Client) ReportActivity(ctx context.Context) error {
	return c.call(ctx, "ReportActivity", nil, nil)
}
