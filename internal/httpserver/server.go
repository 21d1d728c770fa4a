// Package httpserver exposes the control API over HTTP with a server-sent event stream.
package httpserver

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harmonia-vision/harmonia/internal/events"
	"github.com/harmonia-vision/harmonia/internal/metrics"
	"github.com/harmonia-vision/harmonia/internal/model"
	"github.com/harmonia-vision/harmonia/internal/pause"
)

// eventBuffer is the per-client SSE queue length. Events beyond it are dropped
// for that client; the next fullStateChanged carries the complete state anyway.
const eventBuffer = 32

// EventSource is the narrow event contract required by the SSE endpoint.
type EventSource interface {
	Subscribe(fn func(events.Event)) (unsubscribe func())
}

// Server provides an HTTP API for the calibration engine and break reminder.
type Server struct {
	addr      string
	api       model.ControlAPI
	events    EventSource
	metrics   *metrics.Metrics
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server. ev and m may be nil.
func NewServer(addr string, api model.ControlAPI, ev EventSource, m *metrics.Metrics) *Server {
	if addr == "" {
		addr = "127.0.0.1:4020"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		api:       api,
		events:    ev,
		metrics:   m,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.router(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: /api/events responses stay open until the client leaves or Stop.
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server. Open event streams end immediately.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/state", s.handleState)
	api.GET("/events", s.handleEvents)

	api.GET("/settings", s.handleReadSettings)
	api.POST("/settings/apply", s.handleApply)
	api.POST("/settings/preview", s.handlePreview)
	api.POST("/settings/save", s.handleSave)

	api.POST("/snapshot/capture", s.handleCapture)
	api.POST("/snapshot/revert", s.command(s.api.Revert))
	api.POST("/snapshot/revert-and-clear", s.command(s.api.RevertAndClear))
	api.DELETE("/snapshot", s.command(s.api.ClearSnapshot))

	api.PUT("/prescription", s.handleSavePrescription)
	api.DELETE("/prescription", s.command(s.api.ClearPrescription))

	api.GET("/pause", s.pauseCommand(s.api.PauseState))
	api.POST("/pause/toggle", s.pauseCommand(s.api.TogglePause))
	api.POST("/pause/break", s.pauseCommand(s.api.TriggerBreakNow))
	api.POST("/pause/snooze", s.pauseCommand(s.api.SnoozeBreak))
	api.POST("/pause/dismiss", s.pauseCommand(s.api.DismissBreak))
	api.POST("/pause/activity", s.command(s.api.ReportActivity))
	api.GET("/pause/settings", s.handlePauseSettings)
	api.PATCH("/pause/settings", s.handleUpdatePauseSettings)
	api.GET("/pause/stats", s.handleStats)
	api.DELETE("/pause/stats", s.command(s.api.ResetStats))
	api.GET("/pause/events", s.handleBreakEvents)

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	return r
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var wf *model.WriteFailure
	switch {
	case errors.Is(err, model.ErrInvalidSettingsPayload):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNoSnapshot), errors.Is(err, pause.ErrNotOnBreak):
		return http.StatusConflict
	case errors.As(err, &wf):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), model.ResultOf(err))
}

func (s *Server) command(fn func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := fn(c.Request.Context()); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, model.ResultOf(nil))
	}
}

func (s *Server) pauseCommand(fn func(context.Context) (model.PauseState, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := fn(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	st, err := s.api.PauseState(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read scheduler state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
		"phase":  st.Phase,
	})
}

func (s *Server) handleState(c *gin.Context) {
	fs, err := s.api.FullState(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, fs)
}

func (s *Server) handleReadSettings(c *gin.Context) {
	es, err := s.api.ReadCurrentSettings(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, es)
}

func bindSettings(c *gin.Context) (model.EditorSettings, bool) {
	var es model.EditorSettings
	if err := c.ShouldBindJSON(&es); err != nil {
		c.JSON(http.StatusBadRequest, model.Result{Error: "invalid JSON body: " + err.Error()})
		return es, false
	}
	return es, true
}

// handleApply schedules a debounced write and answers 202; the outcome arrives on /api/events.
func (s *Server) handleApply(c *gin.Context) {
	es, ok := bindSettings(c)
	if !ok {
		return
	}
	if err := s.api.ApplySettings(c.Request.Context(), es); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, model.ResultOf(nil))
}

func (s *Server) handlePreview(c *gin.Context) {
	es, ok := bindSettings(c)
	if !ok {
		return
	}
	s.command(func(ctx context.Context) error { return s.api.PreviewSettings(ctx, es) })(c)
}

func (s *Server) handleSave(c *gin.Context) {
	es, ok := bindSettings(c)
	if !ok {
		return
	}
	s.command(func(ctx context.Context) error { return s.api.SaveSettings(ctx, es) })(c)
}

func (s *Server) handleCapture(c *gin.Context) {
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))
	s.command(func(ctx context.Context) error { return s.api.CaptureSnapshot(ctx, force) })(c)
}

func (s *Server) handleSavePrescription(c *gin.Context) {
	var p model.Prescription
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, model.Result{Error: "invalid JSON body: " + err.Error()})
		return
	}
	s.command(func(ctx context.Context) error { return s.api.SavePrescription(ctx, p) })(c)
}

func (s *Server) handlePauseSettings(c *gin.Context) {
	set, err := s.api.PauseSettings(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *Server) handleUpdatePauseSettings(c *gin.Context) {
	var patch model.PauseSettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, model.Result{Error: "invalid JSON body: " + err.Error()})
		return
	}
	set, err := s.api.UpdatePauseSettings(c.Request.Context(), patch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *Server) handleStats(c *gin.Context) {
	sum, err := s.api.PauseStats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) handleBreakEvents(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, model.Result{Error: "days must be a positive integer"})
		return
	}
	evs, err := s.api.BreakEvents(c.Request.Context(), days)
	if err != nil {
		fail(c, err)
		return
	}
	if evs == nil {
		evs = []model.BreakEvent{}
	}
	c.JSON(http.StatusOK, evs)
}

// handleEvents streams fullStateChanged and pauseStateChanged as server-sent events.
// The current full state is sent first so clients start from a complete picture.
func (s *Server) handleEvents(c *gin.Context) {
	if s.events == nil {
		c.JSON(http.StatusNotFound, model.Result{Error: "event stream not available"})
		return
	}
	ctx := c.Request.Context()

	ch := make(chan events.Event, eventBuffer)
	unsubscribe := s.events.Subscribe(func(ev events.Event) {
		select {
		case ch <- ev:
		default:
		}
	})
	defer unsubscribe()

	fs, err := s.api.FullState(ctx)
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(string(events.FullStateChanged), fs)
	c.Writer.Flush()

	c.Stream(func(_ io.Writer) bool {
		select {
		case ev := <-ch:
			switch ev.Kind {
			case events.FullStateChanged:
				c.SSEvent(string(ev.Kind), ev.Full)
			case events.PauseStateChanged:
				c.SSEvent(string(ev.Kind), ev.Pause)
			}
			return true
		case <-ctx.Done():
			return false
		case <-s.ctx.Done():
			return false
		}
	})
}
