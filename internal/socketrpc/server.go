package socketrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harmonia-vision/harmonia/internal/metrics"
	"github.com/harmonia-vision/harmonia/internal/model"
)

const (
	// scannerInitBufSize is the initial buffer size for the per-connection scanner (64 KB).
	scannerInitBufSize = 64 * 1024
	// scannerMaxTokenSize is the maximum token size the scanner will accept (1 MB).
	scannerMaxTokenSize = 1024 * 1024
	// requestTimeout bounds a single command.
	requestTimeout = 30 * time.Second
)

// Server exposes a model.ControlAPI over a Unix domain socket using JSON-RPC 2.0.
type Server struct {
	socketPath string
	api        model.ControlAPI
	metrics    *metrics.Metrics
	listener   net.Listener
	wg         sync.WaitGroup
	quit       chan struct{}
	stopOnce   sync.Once

	ctx    context.Context
	cancel context.CancelFunc

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewServer creates a new socket RPC server. m may be nil.
func NewServer(socketPath string, api model.ControlAPI, m *metrics.Metrics) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath: socketPath,
		api:        api,
		metrics:    m,
		quit:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		conns:      map[net.Conn]struct{}{},
	}
}

// Start begins listening on the Unix socket and accepting connections.
func (s *Server) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0700); err != nil {
		return fmt.Errorf("socketrpc: mkdir: %w", err)
	}

	// Remove stale socket if it exists.
	if _, err := os.Stat(s.socketPath); err == nil {
		conn, dialErr := net.DialTimeout("unix", s.socketPath, 500*time.Millisecond)
		if dialErr != nil {
			// Nobody is listening, so the socket file is stale.
			os.Remove(s.socketPath)
		} else {
			conn.Close()
			return fmt.Errorf("socketrpc: another server is already listening on %s", s.socketPath)
		}
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("socketrpc: listen: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	log.Printf("socketrpc: listening on %s", s.socketPath)
	return nil
}

// Stop closes the listener and open connections, waits for handlers, and removes the socket file.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.connMu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.connMu.Unlock()
		s.wg.Wait()
		os.Remove(s.socketPath)
	})
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				log.Printf("socketrpc: accept error: %v", err)
				continue
			}
		}
		s.connMu.Lock()
		s.conns[conn] = struct{}{}
		s.connMu.Unlock()

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.connMu.Lock()
		delete(s.conns, conn)
		s.connMu.Unlock()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		select {
		case <-s.quit:
			return
		default:
		}

		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			resp := Response{JSONRPC: "2.0", ID: 0, Error: &RPCError{Code: codeParseError, Message: "parse error"}}
			encoder.Encode(resp)
			continue
		}

		ctx, cancel := context.WithTimeout(s.ctx, requestTimeout)
		resp := s.dispatch(ctx, req)
		cancel()
		if err := encoder.Encode(resp); err != nil {
			return
		}
	}
}

// optional decodes params into dst, accepting empty or null params.
func optional(params json.RawMessage, dst interface{}) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	return json.Unmarshal(params, dst)
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}

	marshalResult := func(v interface{}, err error) Response {
		s.metrics.ObserveRPC(req.Method, err)
		if err != nil {
			resp.Error = &RPCError{Code: errorCode(err), Message: err.Error()}
			return resp
		}
		data, merr := json.Marshal(v)
		if merr != nil {
			resp.Error = &RPCError{Code: codeInternal, Message: merr.Error()}
			return resp
		}
		resp.Result = data
		return resp
	}

	command := func(err error) Response {
		return marshalResult(model.ResultOf(err), err)
	}

	invalidParams := func(err error) Response {
		resp.Error = &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
		return resp
	}

	switch req.Method {
	case "FullState":
		return marshalResult(s.api.FullState(ctx))

	case "CaptureSnapshot":
		var p struct{ Force bool }
		if err := optional(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		return command(s.api.CaptureSnapshot(ctx, p.Force))

	case "ReadCurrentSettings":
		return marshalResult(s.api.ReadCurrentSettings(ctx))

	case "ApplySettings", "PreviewSettings", "SaveSettings":
		var p struct{ Settings *model.EditorSettings }
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		if p.Settings == nil {
			return invalidParams(fmt.Errorf("missing Settings"))
		}
		switch req.Method {
		case "ApplySettings":
			return command(s.api.ApplySettings(ctx, *p.Settings))
		case "PreviewSettings":
			return command(s.api.PreviewSettings(ctx, *p.Settings))
		default:
			return command(s.api.SaveSettings(ctx, *p.Settings))
		}

	case "Revert":
		return command(s.api.Revert(ctx))

	case "RevertAndClear":
		return command(s.api.RevertAndClear(ctx))

	case "ClearSnapshot":
		return command(s.api.ClearSnapshot(ctx))

	case "SavePrescription":
		var p struct{ Prescription *model.Prescription }
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		if p.Prescription == nil {
			return invalidParams(fmt.Errorf("missing Prescription"))
		}
		return command(s.api.SavePrescription(ctx, *p.Prescription))

	case "ClearPrescription":
		return command(s.api.ClearPrescription(ctx))

	case "PauseState":
		return marshalResult(s.api.PauseState(ctx))

	case "PauseSettings":
		return marshalResult(s.api.PauseSettings(ctx))

	case "PauseStats":
		return marshalResult(s.api.PauseStats(ctx))

	case "TogglePause":
		return marshalResult(s.api.TogglePause(ctx))

	case "TriggerBreakNow":
		return marshalResult(s.api.TriggerBreakNow(ctx))

	case "SnoozeBreak":
		return marshalResult(s.api.SnoozeBreak(ctx))

	case "DismissBreak":
		return marshalResult(s.api.DismissBreak(ctx))

	case "UpdatePauseSettings":
		var p struct{ Patch model.PauseSettingsPatch }
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		return marshalResult(s.api.UpdatePauseSettings(ctx, p.Patch))

	case "ResetStats":
		return command(s.api.ResetStats(ctx))

	case "BreakEvents":
		var p struct{ Days int }
		if err := optional(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		return marshalResult(s.api.BreakEvents(ctx, p.Days))

	case "ReportActivity":
		return command(s.api.ReportActivity(ctx))

	default:
		resp.Error = &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
		return resp
	}
}
