// Package api talks to the finance backend over JSON/HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"fintrack/internal/log"
)

// Credentials supplies the bearer token for authenticated requests and is
// told when the backend rejects it.
type Credentials interface {
	Token() string
	HandleAuthFailure()
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger

	mu    sync.RWMutex
	creds Credentials
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.WithComponent(log.ComponentAPI)
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UseCredentials installs the token source. It is set after construction
// because the session manager itself needs a client.
func (c *Client) UseCredentials(creds Credentials) {
	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
}

func (c *Client) credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// Do sends an authenticated request. body, when non-nil, is sent as JSON and
// out, when non-nil, receives the decoded response. A 401 reply triggers the
// credentials' auth failure hook before the error is returned.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	creds := c.credentials()
	var token string
	if creds != nil {
		token = creds.Token()
	}
	if token == "" {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}

	err := c.send(ctx, method, path, token, body, out)
	if errors.Is(err, ErrUnauthorized) {
		c.logger.Warn("Backend rejected token, ending session",
			log.NewFields().WithOperation(method+" "+path).WithErrorType(log.ErrorTypeAuth).ToSlice()...)
		creds.HandleAuthFailure()
	}
	return err
}

// DoPublic sends a request without a bearer token. Auth failures here are
// plain errors (wrong password) and do not touch the session.
func (c *Client) DoPublic(ctx context.Context, method, path string, body, out any) error {
	return c.send(ctx, method, path, "", body, out)
}

func (c *Client) send(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	requestID := RequestID(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	fields := log.NewFields().WithHTTPRequest(requestID, method, path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "Request failed",
			fields.WithError(err).WithErrorType(log.ErrorTypeNetwork).ToSlice()...)
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrTransport, err)
	}
	defer resp.Body.Close()

	fields = fields.WithHTTPResponse(resp.StatusCode, time.Since(start).Milliseconds())
	if kind := responseErrorType(resp.StatusCode); kind != "" {
		fields = fields.WithErrorType(kind)
	}
	c.logger.Log(ctx, responseLevel(resp.StatusCode), "Request completed", fields.ToSlice()...)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w: %w", method, path, ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Status:  resp.StatusCode,
			Message: errorMessage(data),
			Method:  method,
			Path:    path,
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func errorMessage(data []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}
