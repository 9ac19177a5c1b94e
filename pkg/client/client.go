package client

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

	"github.com/jdziat/compliscan/pkg/core"
	"github.com/jdziat/compliscan/pkg/jobctx"
)

const defaultUserAgent = "compliscan-go"

// Client performs authenticated requests against the CompliScan API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialProvider
	apiKey     string
	userAgent  string
	logger     *slog.Logger
}

// Response is a normalized 2xx response.
//
// NoContent is set for 204. Data holds the body when it parsed as JSON;
// otherwise Text holds the raw body.
type Response struct {
	Status    int
	NoContent bool
	Data      json.RawMessage
	Text      string
	Header    http.Header
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: http.DefaultClient,
		userAgent:  defaultUserAgent,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt.apply(c)
	}
	return c
}

// BaseURL returns the API root this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request performs one HTTP call and normalizes the response.
//
// body may be nil, an io.Reader sent as-is, or any value encoded as JSON.
// Non-2xx responses return *core.HTTPError; failures with no response return
// *core.TransportError.
func (c *Client) Request(ctx context.Context, method, path string, body any) (*Response, error) {
	target := c.baseURL + path

	var reader io.Reader
	isJSON := false
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	case []byte:
		reader = bytes.NewReader(b)
		isJSON = true
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("compliscan: encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
		isJSON = true
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("compliscan: build request: %w", err)
	}

	reqID := jobctx.RequestID(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if c.creds != nil {
		token, err := c.creds.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("compliscan: credentials: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", append(jobctx.LogAttrs(ctx),
			"method", method,
			"path", path,
			"req_id", reqID,
			"error", err)...)
		return nil, &core.TransportError{Method: method, URL: target, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &core.TransportError{Method: method, URL: target, Err: err}
	}

	c.logger.Debug("request completed", append(jobctx.LogAttrs(ctx),
		"method", method,
		"path", path,
		"status", res.StatusCode,
		"req_id", reqID,
		"elapsed_ms", time.Since(start).Milliseconds())...)

	if res.StatusCode == http.StatusNoContent {
		return &Response{Status: res.StatusCode, NoContent: true, Header: res.Header}, nil
	}

	out := &Response{Status: res.StatusCode, Text: string(raw), Header: res.Header}
	if data := parseJSON(raw); data != nil {
		out.Data = data
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &core.HTTPError{
			Status:  res.StatusCode,
			Message: errorMessage(res.StatusCode, out.Data, out.Text),
		}
	}
	return out, nil
}

// parseJSON returns raw when it is a non-null JSON document.
func parseJSON(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if !json.Valid(trimmed) {
		return nil
	}
	return json.RawMessage(trimmed)
}

func errorMessage(status int, data json.RawMessage, text string) string {
	if data != nil {
		var fields map[string]any
		if json.Unmarshal(data, &fields) == nil {
			for _, key := range []string{"message", "error"} {
				if s, ok := fields[key].(string); ok && s != "" {
					return s
				}
			}
		}
	}
	if text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

func decode[T any](resp *Response, what string) (*T, error) {
	if resp == nil || resp.NoContent || resp.Data == nil {
		return nil, &core.DecodeError{What: what}
	}
	var out T
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return nil, &core.DecodeError{What: what, Err: err}
	}
	return &out, nil
}
