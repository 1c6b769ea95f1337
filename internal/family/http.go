package family

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTP wraps an http.Client with a base URL, a per-call timeout, and
// FetchError classification. Every family client embeds one.
type HTTP struct {
	family  Family
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewHTTP creates a classified HTTP helper. The timeout applies per call
// via context, independent of transport defaults.
func NewHTTP(f Family, baseURL string, timeout time.Duration) *HTTP {
	return &HTTP{
		family:  f,
		baseURL: baseURL,
		timeout: timeout,
		client:  &http.Client{},
	}
}

// SetClient replaces the underlying transport client. Used by families
// whose transport carries auth (oauth2 token source).
func (h *HTTP) SetClient(c *http.Client) { h.client = c }

// GetJSON performs GET baseURL+path and decodes the body into out.
// Pass nil out to discard the body (liveness probes).
func (h *HTTP) GetJSON(ctx context.Context, path string, out any) error {
	return h.do(ctx, http.MethodGet, path, nil, out, h.timeout)
}

// GetJSONTimeout is GetJSON with an explicit timeout, used for health
// probes that run tighter than state fetches.
func (h *HTTP) GetJSONTimeout(ctx context.Context, path string, out any, timeout time.Duration) error {
	return h.do(ctx, http.MethodGet, path, nil, out, timeout)
}

// PostJSON performs POST baseURL+path with a JSON body and decodes the
// response into out (nil to discard).
func (h *HTTP) PostJSON(ctx context.Context, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &FetchError{Family: h.family, Cause: CauseDecode, Err: err}
		}
		buf = bytes.NewReader(data)
	}
	return h.do(ctx, http.MethodPost, path, buf, out, h.timeout)
}

// PutJSON performs PUT baseURL+path with a JSON body. The Hue bridge
// takes light commands over PUT.
func (h *HTTP) PutJSON(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return &FetchError{Family: h.family, Cause: CauseDecode, Err: err}
	}
	return h.do(ctx, http.MethodPut, path, bytes.NewReader(data), nil, h.timeout)
}

func (h *HTTP) do(ctx context.Context, method, path string, body io.Reader, out any, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return &FetchError{Family: h.family, Cause: CauseConnection, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return &FetchError{Family: h.family, Cause: classifyTransport(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cause := CauseStatus
		if resp.StatusCode == http.StatusTooManyRequests {
			cause = CauseQuota
		}
		return &FetchError{
			Family: h.family,
			Cause:  cause,
			Err:    fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode),
		}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Family: h.family, Cause: CauseDecode, Err: err}
	}
	return nil
}

func classifyTransport(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CauseTimeout
	}
	return CauseConnection
}
