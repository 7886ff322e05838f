package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the template API root.
const DefaultBaseURL = "https://mandrillapp.com/api/1.0"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Endpoint is one of the fixed template API calls.
type Endpoint string

const (
	EndpointInfo   Endpoint = "/templates/info.json"
	EndpointRender Endpoint = "/templates/render.json"
	EndpointUpdate Endpoint = "/templates/update.json"
)

// Operation returns a short name for logs and errors.
func (e Endpoint) Operation() string {
	switch e {
	case EndpointInfo:
		return "inspect"
	case EndpointRender:
		return "render"
	case EndpointUpdate:
		return "update"
	default:
		return strings.TrimSuffix(strings.TrimPrefix(string(e), "/"), ".json")
	}
}

// Transport sends a JSON payload to an endpoint and returns the raw reply.
// A reply with any status is a Response; only failures to get a reply are errors.
type Transport interface {
	Post(ctx context.Context, endpoint Endpoint, payload any) (*Response, error)
}

// Response is the status and raw body of a reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// TransportError is returned when a request produced no response.
// Extractable via errors.As(). Supports Unwrap().
type TransportError struct {
	Endpoint Endpoint
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("api: %s failed: %v", e.Endpoint.Operation(), e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPClient implements Transport using net/http.
type HTTPClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewHTTPClient creates a client for baseURL. An empty baseURL selects
// DefaultBaseURL; a zero timeout selects DefaultTimeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: "mandrill-cli/dev",
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: zerolog.Nop(),
	}
}

// WithHTTPClient sets a custom http.Client (for testing or custom timeouts).
func (c *HTTPClient) WithHTTPClient(client *http.Client) *HTTPClient {
	c.httpClient = client
	return c
}

// WithLogger sets the logger used for request and response tracing.
func (c *HTTPClient) WithLogger(logger zerolog.Logger) *HTTPClient {
	c.logger = logger
	return c
}

// WithUserAgent overrides the User-Agent header.
func (c *HTTPClient) WithUserAgent(ua string) *HTTPClient {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

// BaseURL returns the API root requests are sent to.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}

func (c *HTTPClient) Post(ctx context.Context, endpoint Endpoint, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("encode request: %w", err)}
	}

	url := c.baseURL + string(endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	c.setHeaders(req)

	c.logger.Debug().
		Str("op", endpoint.Operation()).
		Str("method", http.MethodPost).
		Str("url", url).
		Str("body", truncateForLog(RedactKey(string(body)), 2000)).
		Msg("request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("op", endpoint.Operation()).Msg("request failed")
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug().
		Str("op", endpoint.Operation()).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("body", truncateForLog(string(respBody), 4000)).
		Msg("response")

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// truncateForLog truncates a string for logging purposes. The cut never
// splits a UTF-8 sequence.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}
