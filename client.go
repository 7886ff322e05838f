package mandrill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperengineering/mandrill/internal/api"
	"github.com/rs/zerolog"
)

// Client runs template operations against the remote API.
// Each call is independent; nothing is cached between calls.
type Client struct {
	config    Config
	transport api.Transport
	sanitizer Sanitizer
	logger    zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport (for testing).
func WithTransport(t api.Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithLogger sets the debug logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a new Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:    cfg,
		sanitizer: NewSanitizer(cfg.SanitizePolicy),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport = api.NewHTTPClient(cfg.BaseURL, cfg.Timeout).
			WithUserAgent(cfg.UserAgent).
			WithLogger(c.logger)
	}

	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Inspect fetches the template's code and optional text part.
func (c *Client) Inspect(ctx context.Context, cmd Command) (*InfoResponse, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var info InfoResponse
	if err := c.call(ctx, api.EndpointInfo, BuildInfoRequest(cmd), &info, "code"); err != nil {
		return nil, err
	}
	return &info, nil
}

// Render renders the template with the command's merge variables.
func (c *Client) Render(ctx context.Context, cmd Command) (*RenderResponse, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var rendered RenderResponse
	if err := c.call(ctx, api.EndpointRender, BuildRenderRequest(cmd), &rendered, "html"); err != nil {
		return nil, err
	}
	return &rendered, nil
}

// Fix strips vendor boilerplate from the template and publishes the result.
// A template with nothing to strip is left alone and only one request is made.
func (c *Client) Fix(ctx context.Context, cmd Command) (*FixResult, error) {
	return c.fix(ctx, cmd, false)
}

// FixDryRun reports what Fix would change without sending the update.
func (c *Client) FixDryRun(ctx context.Context, cmd Command) (*FixResult, error) {
	return c.fix(ctx, cmd, true)
}

func (c *Client) fix(ctx context.Context, cmd Command, dryRun bool) (*FixResult, error) {
	info, err := c.Inspect(ctx, cmd)
	if err != nil {
		return nil, err
	}

	detection := Detect(info.Code, info.Text)
	result := &FixResult{Target: cmd.Target, State: FixUnchanged, Detection: detection}

	c.logger.Debug().
		Str("template", cmd.Target).
		Bool("merge_tag", detection.MergeTag).
		Bool("tracked_link", detection.TrackedLink).
		Msg("detection")

	if !c.sanitizer.Triggered(detection) {
		return result, nil
	}

	result.Code = c.sanitizer.Sanitize(info.Code, detection)
	result.Text = c.sanitizer.SanitizeText(info.Text, detection)

	if dryRun {
		result.State = FixPending
		return result, nil
	}

	resp, err := c.post(ctx, api.EndpointUpdate, BuildUpdateRequest(cmd, result.Code, result.Text))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &Error{
			Kind:       KindRemoteUpdateFailed,
			Operation:  api.EndpointUpdate.Operation(),
			StatusCode: resp.StatusCode,
			Body:       resp.Text(),
		}
	}

	result.State = FixDone
	return result, nil
}

// call posts payload and decodes the reply into out. A reply is
// MalformedResponse, carrying the body verbatim, when the status is not 2xx,
// the body is not a JSON object, or the required field is absent or null.
// The API reports errors as JSON objects without the expected fields.
func (c *Client) call(ctx context.Context, endpoint api.Endpoint, payload, out any, required string) error {
	resp, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return err
	}
	malformed := &Error{
		Kind:       KindMalformedResponse,
		Operation:  endpoint.Operation(),
		StatusCode: resp.StatusCode,
		Body:       resp.Text(),
	}
	if !resp.OK() {
		return malformed
	}

	var fields map[string]json.RawMessage
	if err := resp.Decode(&fields); err != nil {
		malformed.Err = err
		return malformed
	}
	if raw, ok := fields[required]; !ok || string(raw) == "null" {
		malformed.Err = fmt.Errorf("missing field %q", required)
		return malformed
	}
	if err := resp.Decode(out); err != nil {
		malformed.Err = err
		return malformed
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint api.Endpoint, payload any) (*api.Response, error) {
	resp, err := c.transport.Post(ctx, endpoint, payload)
	if err != nil {
		var te *api.TransportError
		if errors.As(err, &te) {
			err = te.Err
		}
		return nil, &Error{Kind: KindTransportFailure, Operation: endpoint.Operation(), Err: err}
	}
	return resp, nil
}
