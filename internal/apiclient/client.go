// Package apiclient performs JSON requests against the Smart Krishi backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CredentialStore supplies the bearer token and is cleared when the backend
// rejects it.
type CredentialStore interface {
	Token() string
	Clear()
}

// RequestOptions describes one request. Method defaults to GET.
type RequestOptions struct {
	Method string
	Body   any
	Header http.Header
}

// Response is a successful reply. Data is the parsed JSON body, an empty
// object when the body was empty.
type Response struct {
	Status int
	Data   any
	Raw    []byte
}

// Decode re-decodes the reply into v.
func (r *Response) Decode(v any) error {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Object returns Data as a JSON object, or nil when it is something else.
func (r *Response) Object() map[string]any {
	obj, _ := r.Data.(map[string]any)
	return obj
}

// Client talks to one backend origin.
type Client struct {
	baseURL string
	creds   CredentialStore
	http    *http.Client
	metrics *Metrics
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records every request in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for baseURL. A trailing slash is ignored.
func New(baseURL string, creds CredentialStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http:    http.DefaultClient,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get is Do with method GET.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, path, RequestOptions{Method: http.MethodGet})
}

// Post is Do with method POST and a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, path, RequestOptions{Method: http.MethodPost, Body: body})
}

// Do sends a request to path and returns the parsed reply. Every failure is
// an *Error. A 401 clears the stored credentials before returning.
func (c *Client) Do(ctx context.Context, path string, opts RequestOptions) (*Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, &Error{Message: fmt.Sprintf("encoding request body: %v", err), Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &Error{Message: err.Error(), Err: err}
	}

	req.Header = opts.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	// Authorization only ever comes from the credential store.
	req.Header.Del("Authorization")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(resultTransport, time.Since(start).Seconds())
		c.logger.Warn("backend request failed", "method", method, "path", path, "error", err)
		return nil, &Error{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.observe(resultTransport, time.Since(start).Seconds())
		return nil, &Error{Message: err.Error(), Status: resp.StatusCode, Err: err}
	}
	data := parseBody(raw)

	logger := c.logger.With("method", method, "path", path, "status", resp.StatusCode, "request_id", req.Header.Get("X-Request-ID"))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.metrics.observe(resultUnauthorized, time.Since(start).Seconds())
		c.creds.Clear()
		logger.Info("backend rejected credentials, session cleared")
		return nil, &Error{Message: UnauthorizedMessage, Status: resp.StatusCode, Payload: data}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.metrics.observe(resultError, time.Since(start).Seconds())
		logger.Debug("backend request unsuccessful")
		return nil, &Error{Message: failureMessage(resp.StatusCode, data), Status: resp.StatusCode, Payload: data}
	}

	c.metrics.observe(resultOK, time.Since(start).Seconds())
	logger.Debug("backend request done")

	return &Response{Status: resp.StatusCode, Data: data, Raw: raw}, nil
}

// parseBody decodes a reply body. An empty body is an empty object and a body
// that is not JSON is wrapped as {"message": text}.
func parseBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return map[string]any{"message": string(raw)}
	}
	return data
}
