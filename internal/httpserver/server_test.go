package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harmonia-vision/harmonia/internal/clock"
	"github.com/harmonia-vision/harmonia/internal/duckdb"
	"github.com/harmonia-vision/harmonia/internal/editorconf"
	"github.com/harmonia-vision/harmonia/internal/metrics"
	"github.com/harmonia-vision/harmonia/internal/model"
	"github.com/harmonia-vision/harmonia/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	srv    *Server
	svc    *service.Service
	clk    *clock.Fake
	target *editorconf.File
	r      *gin.Engine
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	target, err := editorconf.Open(filepath.Join(t.TempDir(), "settings.yml"))
	if err != nil {
		t.Fatalf("editorconf.Open: %v", err)
	}
	t.Cleanup(func() { target.Close() })

	clk := clock.NewFake(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	m := metrics.New()
	svc := service.New(target, store, service.Options{
		Clock:    clk,
		Location: time.UTC,
		Journal:  store,
		Metrics:  m,
	})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(svc.Close)

	srv := NewServer("", svc, svc.Events(), m)
	srv.startTime = time.Now()
	return &testEnv{srv: srv, svc: svc, clk: clk, target: target, r: srv.router()}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	decode(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("health status = %v, want ok", body["status"])
	}
	if body["phase"] != string(model.PhaseActive) {
		t.Errorf("health phase = %v, want active", body["phase"])
	}
}

func TestHealthEndpoint_WrongMethod(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodPost, "/api/health", "")

	// Gin returns 405 for method not allowed when a route exists but not for this method
	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("health POST status = %d, want 405 or 404", w.Code)
	}
}

func TestStateEndpoint(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodGet, "/api/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("state status = %d; body: %s", w.Code, w.Body.String())
	}
	var fs model.FullState
	decode(t, w, &fs)
	if !fs.HasSnapshot {
		t.Error("expected the startup snapshot to be present")
	}
	if fs.Current.FontSize != 14 {
		t.Errorf("current font size = %v, want 14", fs.Current.FontSize)
	}
	if fs.Pause.Phase != model.PhaseActive {
		t.Errorf("pause phase = %q, want active", fs.Pause.Phase)
	}
}

func TestPreviewThenRevert(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodPost, "/api/settings/preview",
		`{"fontSize":18,"lineHeight":0,"letterSpacing":0,"fontWeight":"normal","cursorWidth":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("preview status = %d; body: %s", w.Code, w.Body.String())
	}
	var res model.Result
	decode(t, w, &res)
	if !res.Success {
		t.Fatalf("preview result = %+v", res)
	}

	got, err := e.target.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.FontSize != 18 {
		t.Errorf("file font size = %v, want 18", got.FontSize)
	}

	w = e.do(t, http.MethodPost, "/api/snapshot/revert-and-clear", "")
	if w.Code != http.StatusOK {
		t.Fatalf("revert status = %d; body: %s", w.Code, w.Body.String())
	}
	got, _ = e.target.Read()
	if got.FontSize != 14 {
		t.Errorf("file font size after revert = %v, want 14", got.FontSize)
	}

	// The snapshot is gone now.
	w = e.do(t, http.MethodPost, "/api/snapshot/revert", "")
	if w.Code != http.StatusConflict {
		t.Errorf("revert without snapshot status = %d, want %d", w.Code, http.StatusConflict)
	}
	decode(t, w, &res)
	if res.Success || res.Error == "" {
		t.Errorf("revert without snapshot result = %+v", res)
	}
}

func TestSettingsEndpoint_InvalidPayload(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodPost, "/api/settings/save",
		`{"fontSize":500,"fontWeight":"normal","cursorWidth":2}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid payload status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = e.do(t, http.MethodPost, "/api/settings/save", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestApplyEndpoint_Debounced(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodPost, "/api/settings/apply",
		`{"fontSize":16,"lineHeight":0,"letterSpacing":0,"fontWeight":"normal","cursorWidth":2}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("apply status = %d, want %d", w.Code, http.StatusAccepted)
	}
	if got, _ := e.target.Read(); got.FontSize != 14 {
		t.Errorf("font size before debounce = %v, want 14", got.FontSize)
	}

	e.clk.Advance(model.DefaultApplyDebounce)
	if got, _ := e.target.Read(); got.FontSize != 16 {
		t.Errorf("font size after debounce = %v, want 16", got.FontSize)
	}
}

func TestPrescriptionEndpoints(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodPut, "/api/prescription", `{"sphere":-1.5,"cylinder":0.5,"rememberMe":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put prescription status = %d; body: %s", w.Code, w.Body.String())
	}
	var fs model.FullState
	decode(t, e.do(t, http.MethodGet, "/api/state", ""), &fs)
	if fs.Prescription == nil || fs.Prescription.Sphere != -1.5 {
		t.Errorf("prescription = %+v, want sphere -1.5", fs.Prescription)
	}

	w = e.do(t, http.MethodDelete, "/api/prescription", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete prescription status = %d", w.Code)
	}
	fs = model.FullState{}
	decode(t, e.do(t, http.MethodGet, "/api/state", ""), &fs)
	if fs.Prescription != nil {
		t.Errorf("prescription after delete = %+v, want nil", fs.Prescription)
	}
}

func TestPauseEndpoints(t *testing.T) {
	e := newTestServer(t)

	var st model.PauseState
	w := e.do(t, http.MethodPost, "/api/pause/break", "")
	if w.Code != http.StatusOK {
		t.Fatalf("break status = %d", w.Code)
	}
	decode(t, w, &st)
	if st.Phase != model.PhaseOnBreak || st.RemainingSeconds != 20 {
		t.Errorf("after break = %+v, want on_break with 20s", st)
	}

	w = e.do(t, http.MethodPost, "/api/pause/snooze", "")
	if w.Code != http.StatusOK {
		t.Fatalf("snooze status = %d", w.Code)
	}
	decode(t, w, &st)
	if st.Phase != model.PhaseActive || st.RemainingSeconds != 300 {
		t.Errorf("after snooze = %+v, want active with 300s", st)
	}

	w = e.do(t, http.MethodPost, "/api/pause/dismiss", "")
	if w.Code != http.StatusConflict {
		t.Errorf("dismiss outside break status = %d, want %d", w.Code, http.StatusConflict)
	}

	w = e.do(t, http.MethodPost, "/api/pause/toggle", "")
	decode(t, w, &st)
	if st.Phase != model.PhaseInactive {
		t.Errorf("after toggle = %+v, want inactive", st)
	}

	var sum model.StatsSummary
	decode(t, e.do(t, http.MethodGet, "/api/pause/stats", ""), &sum)
	if sum.Today.Snoozed != 1 {
		t.Errorf("today snoozed = %d, want 1", sum.Today.Snoozed)
	}

	var evs []model.BreakEvent
	decode(t, e.do(t, http.MethodGet, "/api/pause/events?days=1", ""), &evs)
	if len(evs) != 1 || evs[0].Outcome != model.OutcomeSnoozed {
		t.Errorf("events = %+v, want one snoozed", evs)
	}

	w = e.do(t, http.MethodDelete, "/api/pause/stats", "")
	if w.Code != http.StatusOK {
		t.Errorf("reset stats status = %d", w.Code)
	}
	sum = model.StatsSummary{}
	decode(t, e.do(t, http.MethodGet, "/api/pause/stats", ""), &sum)
	if sum.AllTime.Scheduled != 0 {
		t.Errorf("all-time scheduled after reset = %d, want 0", sum.AllTime.Scheduled)
	}
}

func TestPauseEventsEndpoint_BadDays(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodGet, "/api/pause/events?days=zero", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad days status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPauseSettingsEndpoint(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodPatch, "/api/pause/settings", `{"workIntervalMinutes":30}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d; body: %s", w.Code, w.Body.String())
	}
	var set model.PauseSettings
	decode(t, w, &set)
	if set.WorkIntervalMinutes != 30 || set.BreakDurationSeconds != 20 {
		t.Errorf("settings = %+v, want work 30 break 20", set)
	}

	w = e.do(t, http.MethodPatch, "/api/pause/settings", `{"workIntervalMinutes":0}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("out-of-range patch status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestServer(t)

	e.do(t, http.MethodPost, "/api/pause/break", "")
	w := e.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `harmonia_pause_phase{phase="on_break"} 1`) {
		t.Errorf("metrics missing on_break phase:\n%s", w.Body.String())
	}
}

func TestEventsEndpoint_Stream(t *testing.T) {
	e := newTestServer(t)

	ts := httptest.NewServer(e.r)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("content type = %q, want text/event-stream", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	nextEvent := func() string {
		for sc.Scan() {
			if name, ok := strings.CutPrefix(sc.Text(), "event:"); ok {
				return name
			}
		}
		t.Fatalf("stream ended: %v", sc.Err())
		return ""
	}

	if got := nextEvent(); got != "fullStateChanged" {
		t.Fatalf("first event = %q, want fullStateChanged", got)
	}

	if _, err := e.svc.TriggerBreakNow(context.Background()); err != nil {
		t.Fatalf("TriggerBreakNow: %v", err)
	}
	if got := nextEvent(); got != "pauseStateChanged" {
		t.Errorf("second event = %q, want pauseStateChanged", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	e := newTestServer(t)
	e.srv.addr = "127.0.0.1:0"

	if err := e.srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := e.srv.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}
