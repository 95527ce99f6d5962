package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/jonwraymond/infergate/observe"
	"github.com/jonwraymond/infergate/resilience"
)

// TokenSource mints a bearer token for an outbound provider call.
type TokenSource func() (string, error)

// Part is one multipart form file.
type Part struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

// Request is a single provider call.
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// Payload is sent as the raw body with ContentType when Parts is empty.
	Payload     []byte
	ContentType string

	// Parts, when set, are sent as multipart/form-data.
	Parts []Part

	Class Class
}

// Validate checks that the request can be sent.
func (r Request) Validate() error {
	if r.Path == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidRequest)
	}
	switch r.Method {
	case "", http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidRequest, r.Method)
	}
	for _, p := range r.Parts {
		if p.Field == "" {
			return fmt.Errorf("%w: multipart field name is required", ErrInvalidRequest)
		}
	}
	return nil
}

// Response is a successful provider answer.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Config configures a Proxy.
type Config struct {
	// Name identifies the provider in errors and logs.
	Name string

	// BaseURL is the provider root, e.g. http://inference:5000.
	BaseURL string

	// Budgets overrides per-class deadlines.
	Budgets Budgets

	// Tokens, when set, attaches a fresh bearer token to each call.
	Tokens TokenSource

	// Client overrides the HTTP client. The Proxy sets its base URL.
	Client *resty.Client

	Logger observe.Logger
}

// Proxy forwards requests to one provider.
type Proxy struct {
	name    string
	client  *resty.Client
	budgets Budgets
	tokens  TokenSource
	logger  observe.Logger
}

// NewProxy creates a Proxy for the provider at cfg.BaseURL.
func NewProxy(cfg Config) (*Proxy, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidRequest)
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("%w: base URL: %v", ErrInvalidRequest, err)
	}
	if cfg.Name == "" {
		cfg.Name = base
	}
	client := cfg.Client
	if client == nil {
		client = resty.New()
	}
	client.SetBaseURL(base)

	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	budgets := cfg.Budgets
	if budgets == nil {
		budgets = DefaultBudgets()
	}

	return &Proxy{
		name:    cfg.Name,
		client:  client,
		budgets: budgets,
		tokens:  cfg.Tokens,
		logger:  logger,
	}, nil
}

// Name returns the provider name.
func (p *Proxy) Name() string {
	return p.name
}

// Forward sends req and returns the response body of a 2xx answer.
func (p *Proxy) Forward(ctx context.Context, req Request) ([]byte, error) {
	resp, err := p.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Do sends req under its class budget. Non-2xx answers are returned as
// *UpstreamError carrying the provider status and body.
func (p *Proxy) Do(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	start := time.Now()
	resp, err := resilience.Do(ctx, p.budgets.For(req.Class), func(ctx context.Context) (*Response, error) {
		return p.send(ctx, req)
	})

	fields := []observe.Field{
		{Key: "provider", Value: p.name},
		{Key: "method", Value: req.Method},
		{Key: "path", Value: req.Path},
		{Key: "class", Value: req.Class.String()},
		{Key: "duration_ms", Value: time.Since(start).Milliseconds()},
	}
	if err != nil {
		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			err = transportError(p.name, err)
		}
		p.logger.Warn(ctx, "provider call failed", append(fields, observe.Field{Key: "error", Value: err.Error()})...)
		return nil, err
	}
	p.logger.Debug(ctx, "provider call", append(fields, observe.Field{Key: "status", Value: resp.Status})...)
	return resp, nil
}

func (p *Proxy) send(ctx context.Context, req Request) (*Response, error) {
	r := p.client.R().SetContext(ctx)

	if p.tokens != nil {
		token, err := p.tokens()
		if err != nil {
			return nil, fmt.Errorf("inference: service token: %w", err)
		}
		r.SetAuthToken(token)
	}
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}

	switch {
	case len(req.Parts) > 0:
		fields := make([]*resty.MultipartField, 0, len(req.Parts))
		for _, part := range req.Parts {
			fields = append(fields, &resty.MultipartField{
				Name:        part.Field,
				FileName:    part.FileName,
				ContentType: part.ContentType,
				Reader:      bytes.NewReader(part.Data),
			})
		}
		r.SetMultipartFields(fields...)
	case req.Payload != nil:
		if req.ContentType != "" {
			r.SetHeader("Content-Type", req.ContentType)
		}
		r.SetBody(req.Payload)
	}

	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		return nil, err
	}
	body := resp.Bytes()
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, statusError(p.name, resp.StatusCode(), body)
	}
	return &Response{
		Status:      resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        body,
	}, nil
}

// Close releases idle connections.
func (p *Proxy) Close() error {
	return p.client.Close()
}
