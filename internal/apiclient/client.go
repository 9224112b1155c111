package apiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"stockdash/internal/config"
	"stockdash/internal/logger"
	"stockdash/internal/pkg/circuit"
	"stockdash/internal/pkg/text"

	"github.com/tidwall/gjson"
)

// DefaultTimeout bounds every request when the config does not say otherwise.
const DefaultTimeout = 15 * time.Second

const (
	maxResponseBytes = 32 << 20
	maxMessageBytes  = 4096
)

// Client is the single point of HTTP access to the dashboard backend.
// It does not retry, cache or inject auth headers.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	breaker    *circuit.Breaker
}

// New builds a client from cfg, resolving the base URL with the process
// environment.
func New(cfg config.APIConfig) (*Client, error) {
	raw, source := cfg.ResolveBaseURL(os.Getenv)
	c, err := NewWithBaseURL(raw, cfg)
	if err != nil {
		return nil, err
	}
	logger.Infof("backend base url %s (from %s)", c.BaseURL(), source)
	return c, nil
}

// NewWithBaseURL skips base URL resolution; cfg still supplies timeout, TLS
// and breaker settings.
func NewWithBaseURL(raw string, cfg config.APIConfig) (*Client, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("api base url cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse api base url failed: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("api base url must be absolute: %s", raw)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true // #nosec G402
		}
	}
	return &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		breaker: circuit.New("backend", cfg.CircuitThreshold, time.Duration(cfg.CircuitCooldownSeconds)*time.Second),
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) BaseURL() string {
	if c == nil || c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

// Get issues a GET with query encoded as the URL query string and decodes the
// JSON response into out (skipped when out is nil).
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends body as JSON.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.doRequest(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodDelete, path, nil, nil, out)
}

// Health calls the backend health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.Get(ctx, "/health", nil, &resp); err != nil {
		return err
	}
	if !strings.EqualFold(resp.Status, "ok") {
		return fmt.Errorf("backend unhealthy: status=%q", resp.Status)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("api client not initialized")
	}
	endpoint := c.resolveEndpoint(path, query)
	fail := func(kind ErrorKind, status int, msg string, err error) error {
		return &NetworkError{Kind: kind, Method: method, URL: endpoint, StatusCode: status, Message: msg, Err: err}
	}
	if err := c.breaker.Allow(); err != nil {
		return fail(KindConnection, 0, "", err)
	}

	var (
		body    io.Reader
		reqBody []byte
	)
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s %s body failed: %w", method, path, err)
		}
		reqBody = buf
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build %s %s request failed: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	logger.LogHTTPRequest(method, endpoint, reqBody)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.breaker.RecordFailure()
		}
		return fail(classifyTransport(err), 0, "", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.breaker.RecordFailure()
		return fail(classifyTransport(err), resp.StatusCode, "", err)
	}
	logger.LogHTTPResponse(method, endpoint, resp.Status, data)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
		return fail(KindStatus, resp.StatusCode, errorMessage(data, resp.Status), nil)
	}
	c.breaker.RecordSuccess()

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fail(KindDecode, resp.StatusCode, "", err)
	}
	return nil
}

func (c *Client) resolveEndpoint(path string, query url.Values) string {
	trimmed := strings.TrimSpace(path)
	rawQuery := ""
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		rawQuery = trimmed[idx+1:]
		trimmed = trimmed[:idx]
	}
	u := c.baseURL.JoinPath(trimmed)
	if len(query) > 0 {
		if rawQuery != "" {
			rawQuery += "&"
		}
		rawQuery += query.Encode()
	}
	u.RawQuery = rawQuery
	u.Fragment = ""
	return u.String()
}

// errorMessage prefers the backend's {"error": "..."} field and falls back
// to the trimmed body, then the status line.
func errorMessage(body []byte, status string) string {
	if gjson.ValidBytes(body) {
		for _, key := range []string{"error", "message", "msg"} {
			if v := gjson.GetBytes(body, key); v.Exists() && v.Type == gjson.String {
				if msg := strings.TrimSpace(v.String()); msg != "" {
					return msg
				}
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return status
	}
	return text.Truncate(msg, maxMessageBytes)
}
