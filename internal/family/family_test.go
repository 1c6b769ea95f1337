package family

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchErrorTransient(t *testing.T) {
	tests := []struct {
		cause string
		want  bool
	}{
		{CauseTimeout, true},
		{CauseConnection, true},
		{CauseStatus, true},
		{CauseQuota, false},
		{CauseDecode, false},
	}
	for _, tt := range tests {
		e := &FetchError{Family: Hue, Cause: tt.cause}
		if e.Transient() != tt.want {
			t.Errorf("Transient() for cause %q = %v, want %v", tt.cause, e.Transient(), tt.want)
		}
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	var err error = &FetchError{Family: Sonos, Cause: CauseConnection, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should reach the wrapped error")
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Family != Sonos {
		t.Error("errors.As should recover the FetchError")
	}
}

func TestGetJSONDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("path = %q, want /status", r.URL.Path)
		}
		w.Write([]byte(`{"volume": 30}`))
	}))
	defer srv.Close()

	h := NewHTTP(Sonos, srv.URL, 5*time.Second)
	var out struct {
		Volume int `json:"volume"`
	}
	if err := h.GetJSON(context.Background(), "/status", &out); err != nil {
		t.Fatalf("GetJSON() error: %v", err)
	}
	if out.Volume != 30 {
		t.Errorf("Volume = %d, want 30", out.Volume)
	}
}

func TestGetJSONTimeoutCause(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	h := NewHTTP(Tapo, srv.URL, 20*time.Millisecond)
	err := h.GetJSON(context.Background(), "/plugs", nil)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.Cause != CauseTimeout {
		t.Errorf("Cause = %q, want %q", fe.Cause, CauseTimeout)
	}
	if !fe.Transient() {
		t.Error("timeout must be retried like connection-refused")
	}
}

func TestGetJSONConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening any more

	h := NewHTTP(Hue, srv.URL, time.Second)
	err := h.GetJSON(context.Background(), "/api/config", nil)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.Cause != CauseConnection {
		t.Errorf("Cause = %q, want %q", fe.Cause, CauseConnection)
	}
}

func TestStatusCauses(t *testing.T) {
	var status int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	h := NewHTTP(Nest, srv.URL, time.Second)

	status = http.StatusInternalServerError
	err := h.GetJSON(context.Background(), "/devices", nil)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Cause != CauseStatus {
		t.Errorf("500 error = %v, want FetchError with cause status", err)
	}

	status = http.StatusTooManyRequests
	err = h.GetJSON(context.Background(), "/devices", nil)
	if !errors.As(err, &fe) || fe.Cause != CauseQuota {
		t.Errorf("429 error = %v, want FetchError with cause quota", err)
	}
	if fe.Transient() {
		t.Error("quota exhaustion must not be retried locally")
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &FetchError{Family: Hue, Cause: CauseConnection}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func() error {
		calls++
		return &FetchError{Family: Hue, Cause: CauseTimeout}
	})
	if err == nil {
		t.Fatal("Retry() should surface the last error")
	}
	if calls != retryMaxAttempts {
		t.Errorf("calls = %d, want %d", calls, retryMaxAttempts)
	}
}

func TestRetryStopsOnPermanentCause(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func() error {
		calls++
		return &FetchError{Family: Nest, Cause: CauseQuota}
	})
	if err == nil {
		t.Fatal("Retry() should surface the error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (quota is not retried)", calls)
	}
}

func TestRetryHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Retry(ctx, func() error {
		calls++
		return &FetchError{Family: Sonos, Cause: CauseConnection}
	})
	if err == nil {
		t.Fatal("Retry() should fail once the context is cancelled")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Retry() kept waiting past cancellation")
	}
	if calls > 2 {
		t.Errorf("calls = %d, want at most 2 before cancellation", calls)
	}
}
