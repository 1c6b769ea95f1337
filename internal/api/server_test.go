package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/homedeck/homedeck-core/internal/family"
	"github.com/homedeck/homedeck-core/internal/health"
	"github.com/homedeck/homedeck-core/internal/infrastructure/logging"
	"github.com/homedeck/homedeck-core/internal/store"
)

// stubHistoryRepo satisfies store.HistoryRepository with in-memory state.
type stubHistoryRepo struct {
	mu       sync.Mutex
	temps    map[string][]store.TemperaturePoint
	activity []store.ActivityEntry
}

func newStubHistoryRepo() *stubHistoryRepo {
	return &stubHistoryRepo{temps: make(map[string][]store.TemperaturePoint)}
}

func (r *stubHistoryRepo) InsertTemperature(_ context.Context, room string, p store.TemperaturePoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.temps[room] = append(r.temps[room], p)
	return nil
}

func (r *stubHistoryRepo) PruneTemperature(context.Context, time.Time) (int64, error) { return 0, nil }

func (r *stubHistoryRepo) TemperatureSince(_ context.Context, room string, _ time.Time) ([]store.TemperaturePoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.temps[room], nil
}

func (r *stubHistoryRepo) InsertActivity(_ context.Context, e store.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activity = append(r.activity, e)
	return nil
}

func (r *stubHistoryRepo) PruneActivity(context.Context, time.Time) (int64, error) { return 0, nil }

func (r *stubHistoryRepo) ActivitySince(context.Context, time.Time) ([]store.ActivityEntry, error) {
	return nil, nil
}

// memLayout is an in-memory LayoutRepository.
type memLayout struct {
	mu        sync.Mutex
	positions map[string]store.Position
}

func newMemLayout() *memLayout {
	return &memLayout{positions: make(map[string]store.Position)}
}

func (m *memLayout) Put(_ context.Context, id string, pos store.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[id] = pos
	return nil
}

func (m *memLayout) Get(_ context.Context, id string) (store.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return store.Position{}, store.ErrNotFound
	}
	return pos, nil
}

func (m *memLayout) List(context.Context) (map[string]store.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]store.Position, len(m.positions))
	for k, v := range m.positions {
		out[k] = v
	}
	return out, nil
}

type fakeLights struct {
	id  string
	on  bool
	err error
}

func (f *fakeLights) SetLightState(_ context.Context, id string, on bool) error {
	f.id, f.on = id, on
	return f.err
}

type fakePlugs struct {
	name string
	on   bool
}

func (f *fakePlugs) SetPlug(_ context.Context, name string, on bool) error {
	f.name, f.on = name, on
	return nil
}

type fakeSpeakers struct {
	unit  string
	level int
}

func (f *fakeSpeakers) SetVolume(_ context.Context, unit string, level int) error {
	f.unit, f.level = unit, level
	return nil
}

// onlineChecker reports a fixed health for its family.
type onlineChecker struct {
	fam family.Family
}

func (c *onlineChecker) Family() family.Family { return c.fam }

func (c *onlineChecker) FetchHealth(context.Context) family.Health {
	return family.Health{Online: true}
}

func testServer(t *testing.T, mutate func(*Deps)) (*Server, http.Handler) {
	t.Helper()

	history := store.NewHistory(newStubHistoryRepo(), store.HistoryConfig{
		TemperatureWindow: 24 * time.Hour,
		ActivityWindow:    48 * time.Hour,
	}, nil)

	deps := Deps{
		Logger:  logging.Default(),
		Signals: store.NewSignals(),
		History: history,
		Monitor: health.NewMonitor([]health.Checker{&onlineChecker{fam: family.Hue}}, nil, nil),
		Layout:  newMemLayout(),
		Version: "test",
	}
	if mutate != nil {
		mutate(&deps)
	}

	s, err := New(deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, s.buildRouter()
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	_, router := testServer(t, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" || resp["version"] != "test" {
		t.Errorf("resp = %v", resp)
	}
}

func TestRequestIDHeader(t *testing.T) {
	_, router := testServer(t, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	echo := httptest.NewRecorder()
	router.ServeHTTP(echo, req)
	if got := echo.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want echo of client value", got)
	}
}

func TestListSignals(t *testing.T) {
	s, router := testServer(t, nil)
	s.signals.Set("temp:Lounge", 21.5, "Lounge")
	s.signals.Set("motion:Hall", false, "Hall")

	rec := doRequest(t, router, http.MethodGet, "/api/v1/signals/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Signals []store.Signal `json:"signals"`
		Count   int            `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || len(resp.Signals) != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	// Snapshot is sorted by key.
	if resp.Signals[0].Key != "motion:Hall" || resp.Signals[1].Key != "temp:Lounge" {
		t.Errorf("order = %q, %q", resp.Signals[0].Key, resp.Signals[1].Key)
	}
}

func TestGetSignal(t *testing.T) {
	s, router := testServer(t, nil)
	s.signals.Set("temp:Lounge", 21.5, "Lounge")

	rec := doRequest(t, router, http.MethodGet, "/api/v1/signals/temp:Lounge", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var sig store.Signal
	if err := json.Unmarshal(rec.Body.Bytes(), &sig); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sig.Key != "temp:Lounge" || sig.Value != 21.5 {
		t.Errorf("signal = %+v", sig)
	}
}

func TestGetSignalNotFound(t *testing.T) {
	_, router := testServer(t, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/signals/temp:Attic", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var apiErr Error
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if apiErr.Code != ErrCodeNotFound {
		t.Errorf("code = %q", apiErr.Code)
	}
}

func TestFamiliesReportsMonitorSnapshot(t *testing.T) {
	s, router := testServer(t, nil)
	s.monitor.CheckAll(context.Background())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/families", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Families map[string]health.Status `json:"families"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Families["hue"].State != health.StateOnline {
		t.Errorf("hue state = %q, want online", resp.Families["hue"].State)
	}
}

func TestTemperatureHistoryRequiresRoom(t *testing.T) {
	_, router := testServer(t, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/history/temperature", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTemperatureHistory(t *testing.T) {
	s, router := testServer(t, nil)
	now := time.Now().UTC()
	if err := s.history.AppendTemperature(context.Background(), "Lounge", 20.5, now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := s.history.AppendTemperature(context.Background(), "Lounge", 21.0, now); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, router, http.MethodGet, "/api/v1/history/temperature?room=Lounge", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Room   string                   `json:"room"`
		Points []store.TemperaturePoint `json:"points"`
		Count  int                      `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Room != "Lounge" || resp.Count != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestActivityLog(t *testing.T) {
	s, router := testServer(t, nil)
	entry := store.ActivityEntry{Type: store.ActivityMotion, Location: "Hall", Time: time.Now().UTC()}
	if err := s.history.AppendActivity(context.Background(), entry); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, router, http.MethodGet, "/api/v1/history/activity", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Entries []store.ActivityEntry `json:"entries"`
		Count   int                   `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Entries[0].Location != "Hall" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	_, router := testServer(t, nil)

	put := doRequest(t, router, http.MethodPut, "/api/v1/layout/temp-card", store.Position{X: 120, Y: 48})
	if put.Code != http.StatusOK {
		t.Fatalf("put status = %d", put.Code)
	}

	get := doRequest(t, router, http.MethodGet, "/api/v1/layout/temp-card", nil)
	if get.Code != http.StatusOK {
		t.Fatalf("get status = %d", get.Code)
	}
	var pos store.Position
	if err := json.Unmarshal(get.Body.Bytes(), &pos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pos.X != 120 || pos.Y != 48 {
		t.Errorf("pos = %+v", pos)
	}

	list := doRequest(t, router, http.MethodGet, "/api/v1/layout/", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("list status = %d", list.Code)
	}
	var all struct {
		Elements map[string]store.Position `json:"elements"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all.Elements) != 1 {
		t.Errorf("elements = %+v", all.Elements)
	}
}

func TestLayoutMissingElement(t *testing.T) {
	_, router := testServer(t, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/layout/unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSetLight(t *testing.T) {
	lights := &fakeLights{}
	_, router := testServer(t, func(d *Deps) { d.Lights = lights })

	rec := doRequest(t, router, http.MethodPost, "/api/v1/lights/7/state", lightStateRequest{On: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if lights.id != "7" || !lights.on {
		t.Errorf("SetLightState(%q, %v)", lights.id, lights.on)
	}
}

func TestSetLightUnconfiguredFamily(t *testing.T) {
	_, router := testServer(t, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/lights/7/state", lightStateRequest{On: true})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestSetLightUpstreamFailure(t *testing.T) {
	lights := &fakeLights{err: &family.FetchError{Family: family.Hue, Cause: family.CauseConnection, Err: errors.New("refused")}}
	_, router := testServer(t, func(d *Deps) { d.Lights = lights })

	rec := doRequest(t, router, http.MethodPost, "/api/v1/lights/7/state", lightStateRequest{On: true})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestSetPlug(t *testing.T) {
	plugs := &fakePlugs{}
	_, router := testServer(t, func(d *Deps) { d.Plugs = plugs })

	rec := doRequest(t, router, http.MethodPost, "/api/v1/plugs/heater/state", plugStateRequest{On: false})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if plugs.name != "heater" || plugs.on {
		t.Errorf("SetPlug(%q, %v)", plugs.name, plugs.on)
	}
}

func TestSetVolume(t *testing.T) {
	speakers := &fakeSpeakers{}
	_, router := testServer(t, func(d *Deps) { d.Speakers = speakers })

	rec := doRequest(t, router, http.MethodPost, "/api/v1/speakers/Lounge/volume", volumeRequest{Level: 35})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if speakers.unit != "Lounge" || speakers.level != 35 {
		t.Errorf("SetVolume(%q, %d)", speakers.unit, speakers.level)
	}
}

func TestSetVolumeRejectsOutOfRange(t *testing.T) {
	speakers := &fakeSpeakers{}
	_, router := testServer(t, func(d *Deps) { d.Speakers = speakers })

	rec := doRequest(t, router, http.MethodPost, "/api/v1/speakers/Lounge/volume", volumeRequest{Level: 140})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if speakers.unit != "" {
		t.Error("out-of-range volume must not reach the relay")
	}
}

func TestCORSPreflight(t *testing.T) {
	_, router := testServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/signals/", nil)
	req.Header.Set("Origin", "http://panel.local")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://panel.local" {
		t.Errorf("allow-origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
