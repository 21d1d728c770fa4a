package socketrpc

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/harmonia-vision/harmonia/internal/model"
	"github.com/harmonia-vision/harmonia/internal/pause"
)

// JSON-RPC 2.0 Method Reference
//
// The socket RPC server exposes model.ControlAPI over a Unix domain socket.
// Each method maps 1:1 to the ControlAPI interface.
//
//   Method                 Params                          Result
//   ───────────────────    ─────────────────────────────   ──────────────────
//   FullState              (none)                          FullState
//   CaptureSnapshot        {Force: bool}                   Result
//   ReadCurrentSettings    (none)                          EditorSettings
//   ApplySettings          {Settings: EditorSettings}      Result
//   PreviewSettings        {Settings: EditorSettings}      Result
//   SaveSettings           {Settings: EditorSettings}      Result
//   Revert                 (none)                          Result
//   RevertAndClear         (none)                          Result
//   ClearSnapshot          (none)                          Result
//   SavePrescription       {Prescription: Prescription}    Result
//   ClearPrescription      (none)                          Result
//   PauseState             (none)                          PauseState
//   PauseSettings          (none)                          PauseSettings
//   PauseStats             (none)                          StatsSummary
//   TogglePause            (none)                          PauseState
//   TriggerBreakNow        (none)                          PauseState
//   SnoozeBreak            (none)                          PauseState
//   DismissBreak           (none)                          PauseState
//   UpdatePauseSettings    {Patch: PauseSettingsPatch}     PauseSettings
//   ResetStats             (none)                          Result
//   BreakEvents            {Days: int}                     []BreakEvent
//   ReportActivity         (none)                          Result
//
// Methods without params accept empty or null params.
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)
//   -32000  Application error
//   -32001  No snapshot captured
//   -32002  Invalid settings payload
//   -32003  Settings write failed
//   -32004  No break in progress

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
	codeApplication    = -32000
	codeNoSnapshot     = -32001
	codeInvalidPayload = -32002
	codeWriteFailure   = -32003
	codeNotOnBreak     = -32004
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// Unwrap maps domain error codes back to their sentinels so callers can use errors.Is.
func (e *RPCError) Unwrap() error {
	switch e.Code {
	case codeNoSnapshot:
		return model.ErrNoSnapshot
	case codeInvalidPayload:
		return model.ErrInvalidSettingsPayload
	case codeNotOnBreak:
		return pause.ErrNotOnBreak
	}
	return nil
}

// errorCode picks the wire code for an application error.
func errorCode(err error) int {
	var wf *model.WriteFailure
	switch {
	case errors.Is(err, model.ErrNoSnapshot):
		return codeNoSnapshot
	case errors.Is(err, model.ErrInvalidSettingsPayload):
		return codeInvalidPayload
	case errors.Is(err, pause.ErrNotOnBreak):
		return codeNotOnBreak
	case errors.As(err, &wf):
		return codeWriteFailure
	}
	return codeApplication
}

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/harmonia/harmonia.sock, falling back to
// ~/.local/state/harmonia/harmonia.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "harmonia", "harmonia.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/harmonia.sock"
	}
	return filepath.Join(home, ".local", "state", "harmonia", "harmonia.sock")
}
