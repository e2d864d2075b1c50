package transports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPTransport implements LogsTransport over the HTTP API.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport constructs a transport for baseURL. A nil client uses one
// with a 90 second timeout, long enough for a maximal tail wait.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}
	return &HTTPTransport{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Code)
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Message)
}

func (r QueryRequest) values() url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("start", r.Start)
	set("end", r.End)
	set("level", r.Level)
	set("order", r.Order)
	set("filter", r.Filter)
	if r.ExplicitLevel {
		v.Set("explicit_level", "true")
	}
	for _, t := range r.Tags {
		v.Add("tags", t)
	}
	if r.Limit > 0 {
		v.Set("limit", strconv.Itoa(r.Limit))
	}
	if r.AfterID > 0 {
		v.Set("after_id", strconv.FormatUint(r.AfterID, 10))
	}
	return v
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := t.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (t *HTTPTransport) Query(ctx context.Context, req QueryRequest) (Page, error) {
	var p Page
	err := t.do(ctx, http.MethodGet, "/v1/logs", req.values(), nil, &p)
	return p, err
}

// Tail long-polls for events after req.AfterID.
func (t *HTTPTransport) Tail(ctx context.Context, req QueryRequest, waitMs int) (Page, error) {
	v := req.values()
	if waitMs > 0 {
		v.Set("wait_ms", strconv.Itoa(waitMs))
	}
	var p Page
	err := t.do(ctx, http.MethodGet, "/v1/logs/tail", v, nil, &p)
	return p, err
}

func (t *HTTPTransport) Write(ctx context.Context, entries []Entry) (int, error) {
	var out struct {
		Accepted int `json:"accepted"`
	}
	err := t.do(ctx, http.MethodPost, "/v1/logs", nil, entries, &out)
	return out.Accepted, err
}

func (t *HTTPTransport) Delete(ctx context.Context, req DeleteRequest) error {
	return t.do(ctx, http.MethodPost, "/v1/logs/delete", nil, req, nil)
}

func (t *HTTPTransport) Path(ctx context.Context) (string, error) {
	var out struct {
		Path string `json:"path"`
	}
	err := t.do(ctx, http.MethodGet, "/v1/logs/path", nil, nil, &out)
	return out.Path, err
}

func (t *HTTPTransport) Cleanup(ctx context.Context, req CleanupRequest) error {
	return t.do(ctx, http.MethodPost, "/v1/logs/cleanup", nil, req, nil)
}

type levelBody struct {
	Level string `json:"level"`
}

func (t *HTTPTransport) Level(ctx context.Context) (string, error) {
	var out levelBody
	err := t.do(ctx, http.MethodGet, "/v1/logs/level", nil, nil, &out)
	return out.Level, err
}

func (t *HTTPTransport) SetLevel(ctx context.Context, level string) (string, error) {
	var out levelBody
	err := t.do(ctx, http.MethodPut, "/v1/logs/level", nil, levelBody{Level: level}, &out)
	return out.Level, err
}
