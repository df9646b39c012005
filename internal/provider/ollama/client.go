package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/davidbz/voxrelay/internal/domain"
)

const (
	chatPath   = "/api/chat"
	tagsPath   = "/api/tags"
	maxErrBody = 4 << 10
)

var errIdle = errors.New("upstream stopped responding")

// chatRequest is the native /api/chat request body.
type chatRequest struct {
	Model    string             `json:"model"`
	Messages []domain.Message   `json:"messages"`
	Stream   bool               `json:"stream"`
	Options  domain.ChatOptions `json:"options,omitempty"`
}

// chatRecord is one NDJSON line of a streaming /api/chat response. Older
// servers and the generate endpoint put the fragment in Response instead.
type chatRecord struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (r *chatRecord) fragment() string {
	if r.Message.Content != "" {
		return r.Message.Content
	}
	return r.Response
}

// Client wraps the HTTP client for Ollama API calls.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a client whose dial and response-header waits are bounded
// by the configured timeout. The body is guarded per read instead of as a
// whole so long token streams are not cut off.
func NewClient(config Config) *Client {
	timeout := time.Duration(config.Timeout) * time.Second

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if timeout > 0 {
		transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
		transport.ResponseHeaderTimeout = timeout
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{Transport: transport},
	}
}

// Do sends a request and returns the response once the upstream answered 2xx.
// The returned body cancels the request when idle longer than the timeout;
// callers must close it.
func (c *Client) Do(ctx context.Context, method, path string, payload any) (io.ReadCloser, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	reqCtx, cancel := context.WithCancelCause(ctx)

	httpReq, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, body)
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		_ = resp.Body.Close()
		cancel(nil)
		return nil, &domain.UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	return newIdleBody(reqCtx, resp.Body, c.timeout, cancel), nil
}

// idleBody cancels its request when no bytes arrive within timeout.
type idleBody struct {
	ctx     context.Context
	body    io.ReadCloser
	timeout time.Duration
	timer   *time.Timer
	cancel  context.CancelCauseFunc
}

func newIdleBody(
	ctx context.Context,
	body io.ReadCloser,
	timeout time.Duration,
	cancel context.CancelCauseFunc,
) *idleBody {
	b := &idleBody{ctx: ctx, body: body, timeout: timeout, timer: nil, cancel: cancel}
	if timeout > 0 {
		b.timer = time.AfterFunc(timeout, func() {
			cancel(fmt.Errorf("%w for %s", errIdle, timeout))
		})
	}
	return b
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if n > 0 && b.timer != nil {
		b.timer.Reset(b.timeout)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		if cause := context.Cause(b.ctx); errors.Is(cause, errIdle) {
			return n, cause
		}
	}
	return n, err
}

func (b *idleBody) Close() error {
	if b.timer != nil {
		b.timer.Stop()
	}
	err := b.body.Close()
	b.cancel(nil)
	return err
}
