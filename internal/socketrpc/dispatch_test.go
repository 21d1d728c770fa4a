package socketrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/harmonia-vision/harmonia/internal/model"
	"github.com/harmonia-vision/harmonia/internal/pause"
)

// stubAPI returns fixed values for dispatch unit testing.
type stubAPI struct {
	err error
}

func (a *stubAPI) FullState(context.Context) (model.FullState, error) {
	return model.FullState{Current: model.DefaultEditorSettings(), HasSnapshot: true}, a.err
}
func (a *stubAPI) CaptureSnapshot(context.Context, bool) error { return a.err }
func (a *stubAPI) ReadCurrentSettings(context.Context) (model.EditorSettings, error) {
	return model.DefaultEditorSettings(), a.err
}
func (a *stubAPI) ApplySettings(context.Context, model.EditorSettings) error   { return a.err }
func (a *stubAPI) PreviewSettings(context.Context, model.EditorSettings) error { return a.err }
func (a *stubAPI) SaveSettings(context.Context, model.EditorSettings) error    { return a.err }
func (a *stubAPI) Revert(context.Context) error                                { return a.err }
func (a *stubAPI) RevertAndClear(context.Context) error                        { return a.err }
func (a *stubAPI) ClearSnapshot(context.Context) error                         { return a.err }
func (a *stubAPI) SavePrescription(context.Context, model.Prescription) error  { return a.err }
func (a *stubAPI) ClearPrescription(context.Context) error                     { return a.err }
func (a *stubAPI) PauseState(context.Context) (model.PauseState, error) {
	return model.PauseState{Phase: model.PhaseActive, RemainingSeconds: 10, TotalSeconds: 1200}, a.err
}
func (a *stubAPI) PauseSettings(context.Context) (model.PauseSettings, error) {
	return model.DefaultPauseSettings(), a.err
}
func (a *stubAPI) PauseStats(context.Context) (model.StatsSummary, error) {
	return model.StatsSummary{CurrentStreakDays: 3}, a.err
}
func (a *stubAPI) TogglePause(context.Context) (model.PauseState, error) {
	return model.PauseState{Phase: model.PhaseInactive}, a.err
}
func (a *stubAPI) TriggerBreakNow(context.Context) (model.PauseState, error) {
	return model.PauseState{Phase: model.PhaseOnBreak, RemainingSeconds: 20, TotalSeconds: 20}, a.err
}
func (a *stubAPI) SnoozeBreak(context.Context) (model.PauseState, error) {
	return model.PauseState{Phase: model.PhaseActive, RemainingSeconds: 300, TotalSeconds: 300}, a.err
}
func (a *stubAPI) DismissBreak(context.Context) (model.PauseState, error) {
	return model.PauseState{Phase: model.PhaseActive, RemainingSeconds: 1200, TotalSeconds: 1200}, a.err
}
func (a *stubAPI) UpdatePauseSettings(_ context.Context, p model.PauseSettingsPatch) (model.PauseSettings, error) {
	return p.Apply(model.DefaultPauseSettings()), a.err
}
func (a *stubAPI) ResetStats(context.Context) error { return a.err }
func (a *stubAPI) BreakEvents(context.Context, int) ([]model.BreakEvent, error) {
	return []model.BreakEvent{{At: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), Day: "2026-03-02", Outcome: model.OutcomeCompleted, Seconds: 20}}, a.err
}
func (a *stubAPI) ReportActivity(context.Context) error { return a.err }

func newTestDispatcher(err error) *Server {
	return &Server{api: &stubAPI{err: err}}
}

func TestDispatch_AllMethods(t *testing.T) {
	t.Parallel()
	srv := newTestDispatcher(nil)
	settings := `{"Settings":{"fontSize":16,"lineHeight":0,"letterSpacing":0,"fontWeight":"normal","cursorWidth":2}}`

	tests := []struct {
		method string
		params string
	}{
		{"FullState", `{}`},
		{"CaptureSnapshot", `{"Force":true}`},
		{"ReadCurrentSettings", `{}`},
		{"ApplySettings", settings},
		{"PreviewSettings", settings},
		{"SaveSettings", settings},
		{"Revert", `{}`},
		{"RevertAndClear", `{}`},
		{"ClearSnapshot", `{}`},
		{"SavePrescription", `{"Prescription":{"sphere":-1,"cylinder":0,"rememberMe":true}}`},
		{"ClearPrescription", `{}`},
		{"PauseState", `{}`},
		{"PauseSettings", `{}`},
		{"PauseStats", `{}`},
		{"TogglePause", `{}`},
		{"TriggerBreakNow", `{}`},
		{"SnoozeBreak", `{}`},
		{"DismissBreak", `{}`},
		{"UpdatePauseSettings", `{"Patch":{"workIntervalMinutes":30}}`},
		{"ResetStats", `{}`},
		{"BreakEvents", `{"Days":7}`},
		{"ReportActivity", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			t.Parallel()
			req := Request{
				JSONRPC: "2.0",
				ID:      1,
				Method:  tt.method,
				Params:  json.RawMessage(tt.params),
			}
			resp := srv.dispatch(context.Background(), req)
			if resp.Error != nil {
				t.Fatalf("dispatch(%s) error: %s", tt.method, resp.Error.Message)
			}
			if resp.Result == nil {
				t.Fatalf("dispatch(%s) returned nil result", tt.method)
			}
			if resp.JSONRPC != "2.0" {
				t.Errorf("JSONRPC = %q, want 2.0", resp.JSONRPC)
			}
			if resp.ID != 1 {
				t.Errorf("ID = %d, want 1", resp.ID)
			}
		})
	}
}

func TestDispatch_MethodNotFound(t *testing.T) {
	t.Parallel()
	srv := newTestDispatcher(nil)

	resp := srv.dispatch(context.Background(), Request{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "NonExistentMethod",
		Params:  json.RawMessage(`{}`),
	})
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != -32601 {
		t.Errorf("error code = %d, want -32601", resp.Error.Code)
	}
}

func TestDispatch_InvalidParams(t *testing.T) {
	t.Parallel()
	srv := newTestDispatcher(nil)

	for _, tt := range []struct{ method, params string }{
		{"PreviewSettings", `not json`},
		{"SaveSettings", `{}`},
		{"SavePrescription", `{"Prescription":null}`},
		{"UpdatePauseSettings", `[1,2]`},
	} {
		resp := srv.dispatch(context.Background(), Request{
			JSONRPC: "2.0",
			ID:      2,
			Method:  tt.method,
			Params:  json.RawMessage(tt.params),
		})
		if resp.Error == nil {
			t.Fatalf("%s: expected error for params %s", tt.method, tt.params)
		}
		if resp.Error.Code != -32602 {
			t.Errorf("%s: error code = %d, want -32602 (invalid params)", tt.method, resp.Error.Code)
		}
	}
}

func TestDispatch_EmptyParamsOnOptionalMethods(t *testing.T) {
	t.Parallel()
	srv := newTestDispatcher(nil)

	methods := []string{"FullState", "CaptureSnapshot", "Revert", "PauseStats", "BreakEvents", "ReportActivity"}

	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			t.Parallel()
			resp := srv.dispatch(context.Background(), Request{
				JSONRPC: "2.0",
				ID:      1,
				Method:  method,
				Params:  nil,
			})
			if resp.Error != nil {
				t.Fatalf("dispatch(%s) with nil params: %s", method, resp.Error.Message)
			}
		})
	}
}

func TestDispatch_ErrorCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		code int
	}{
		{model.ErrNoSnapshot, -32001},
		{fmt.Errorf("%w: fontSize", model.ErrInvalidSettingsPayload), -32002},
		{&model.WriteFailure{Err: errors.New("disk full")}, -32003},
		{pause.ErrNotOnBreak, -32004},
		{errors.New("boom"), -32000},
	}
	for _, tt := range tests {
		srv := newTestDispatcher(tt.err)
		resp := srv.dispatch(context.Background(), Request{JSONRPC: "2.0", ID: 3, Method: "Revert"})
		if resp.Error == nil {
			t.Fatalf("%v: expected error", tt.err)
		}
		if resp.Error.Code != tt.code {
			t.Errorf("%v: code = %d, want %d", tt.err, resp.Error.Code, tt.code)
		}
		if resp.Error.Message != tt.err.Error() {
			t.Errorf("%v: message = %q", tt.err, resp.Error.Message)
		}
	}
}

func TestDispatch_CommandReturnsResult(t *testing.T) {
	t.Parallel()
	srv := newTestDispatcher(nil)

	resp := srv.dispatch(context.Background(), Request{JSONRPC: "2.0", ID: 1, Method: "ClearSnapshot"})
	var res model.Result
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !res.Success {
		t.Errorf("Result = %+v, want success", res)
	}
}

func TestDispatch_PreservesRequestID(t *testing.T) {
	t.Parallel()
	srv := newTestDispatcher(nil)

	for _, id := range []int{0, 1, 42, 9999} {
		resp := srv.dispatch(context.Background(), Request{
			JSONRPC: "2.0",
			ID:      id,
			Method:  "PauseState",
			Params:  json.RawMessage(`{}`),
		})
		if resp.ID != id {
			t.Errorf("request ID %d: response ID = %d", id, resp.ID)
		}
	}
}
