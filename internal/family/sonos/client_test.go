package sonos

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/homedeck/homedeck-core/internal/family"
	"github.com/homedeck/homedeck-core/internal/infrastructure/config"
	"github.com/homedeck/homedeck-core/internal/rooms"
)

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	m, err := rooms.NewMapper([]config.RoomRule{
		{Pattern: "lounge", Room: "Lounge"},
		{Pattern: "office", Room: "Office"},
	})
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(config.RelayConfig{URL: url, Timeout: 2}, m, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(config.RelayConfig{}, nil, nil)
	var ce *family.ConfigError
	if !errors.As(err, &ce) || ce.Family != family.Sonos {
		t.Fatalf("error = %v, want *family.ConfigError for sonos", err)
	}
}

func TestFetchState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("path = %q, want /status", r.URL.Path)
		}
		w.Write([]byte(`{"units": [
			{"name": "Lounge", "volume": 30, "state": "PLAYING", "now_playing": "Some Album"},
			{"name": "Office", "volume": 12, "state": "STOPPED", "now_playing": ""}
		]}`))
	}))
	defer srv.Close()

	readings, err := testClient(t, srv.URL).FetchState(context.Background())
	if err != nil {
		t.Fatalf("FetchState() error: %v", err)
	}
	if len(readings) != 6 {
		t.Fatalf("readings = %d, want 6 (three per unit)", len(readings))
	}

	byKey := make(map[string]family.Reading)
	for _, r := range readings {
		byKey[r.Key] = r
	}
	if r := byKey["speaker:Lounge:volume"]; r.Value != 30 || r.Room != "Lounge" {
		t.Errorf("speaker:Lounge:volume = %+v", r)
	}
	if r := byKey["speaker:Lounge:state"]; r.Value != "PLAYING" {
		t.Errorf("speaker:Lounge:state = %+v", r)
	}
	if r := byKey["speaker:Office:track"]; r.Value != "" {
		t.Errorf("speaker:Office:track = %+v, want empty", r)
	}
}

func TestFetchStateSkipsMalformedUnit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"units": [
			{"name": "Lounge", "volume": 30, "state": "PLAYING"},
			"not an object",
			{"name": "Office", "volume": 5, "state": "STOPPED"}
		]}`))
	}))
	defer srv.Close()

	readings, err := testClient(t, srv.URL).FetchState(context.Background())
	if err != nil {
		t.Fatalf("FetchState() error: %v", err)
	}
	if len(readings) != 6 {
		t.Errorf("readings = %d, want 6 (malformed unit skipped)", len(readings))
	}
}

func TestFetchHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q, want /health", r.URL.Path)
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	if h := testClient(t, srv.URL).FetchHealth(context.Background()); !h.Online {
		t.Errorf("FetchHealth() = %+v, want online", h)
	}
}

func TestCommands(t *testing.T) {
	type call struct {
		path string
		body map[string]any
	}
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, call{path: r.URL.Path, body: body})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	if err := c.SetVolume(context.Background(), "Lounge", 25); err != nil {
		t.Fatalf("SetVolume() error: %v", err)
	}
	if err := c.Say(context.Background(), "Lounge", "motion in the hall"); err != nil {
		t.Fatalf("Say() error: %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	if calls[0].path != "/units/Lounge/volume" || calls[0].body["level"] != float64(25) {
		t.Errorf("volume call = %+v", calls[0])
	}
	if calls[1].path != "/units/Lounge/say" || calls[1].body["text"] != "motion in the hall" {
		t.Errorf("say call = %+v", calls[1])
	}
}
