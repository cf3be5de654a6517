package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	HeaderRequestID = "X-Request-ID"

	contentTypeJSON = "application/json"
)

// TokenSource supplies the bearer token for authenticated requests. An
// empty token means the Authorization header is left out.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) AccessToken(ctx context.Context) (string, error) {
	return f(ctx)
}

// RequestOptions describes a single call.
type RequestOptions struct {
	Method string
	// Body is JSON encoded unless it is already an io.Reader.
	Body   any
	Header http.Header
	// SkipJSONHeaders leaves out the default Content-Type and Accept headers.
	SkipJSONHeaders bool
	// Auth attaches the bearer token from the client's TokenSource.
	Auth bool
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	userAgent  string
	log        *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient returns a client for the API rooted at baseURL. A blank base
// URL is a configuration error.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		userAgent: "pymedesk-storefront",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c, nil
}

// NormalizeBaseURL trims base and makes sure it ends with a slash.
func NormalizeBaseURL(base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", &ConfigError{Field: "base URL", Reason: "is not set"}
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL joins path onto the base URL. A leading slash on path is dropped so
// the base path is never replaced.
func (c *Client) URL(path string) string {
	return c.baseURL + strings.TrimPrefix(path, "/")
}

// Do performs the request and decodes a JSON response body into out, which
// may be nil. A success body that is not valid JSON leaves out untouched.
// Non-2xx responses are returned as *APIError.
func (c *Client) Do(ctx context.Context, path string, opts RequestOptions, out any) error {
	req, err := c.newRequest(ctx, path, opts)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("api request failed",
			zap.String("method", req.Method),
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api request",
		zap.String("method", req.Method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", req.Header.Get(HeaderRequestID)),
	)

	payload, err := readJSON(resp)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", req.Method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fallback := statusText(resp)
		return &APIError{
			Message: ResolveErrorMessage(payload, fallback),
			Status:  resp.StatusCode,
			Payload: payload,
		}
	}

	if out == nil || payload == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		c.log.Debug("api response does not match expected shape",
			zap.String("path", path),
			zap.Error(err),
		)
	}
	return nil
}

// Fetch is Do with the response decoded into a T.
func Fetch[T any](ctx context.Context, c *Client, path string, opts RequestOptions) (T, error) {
	var out T
	err := c.Do(ctx, path, opts, &out)
	return out, err
}

func (c *Client) newRequest(ctx context.Context, path string, opts RequestOptions) (*http.Request, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	switch b := opts.Body.(type) {
	case nil:
	case io.Reader:
		body = b
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if !opts.SkipJSONHeaders {
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", contentTypeJSON)
		}
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", contentTypeJSON)
		}
	}
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if opts.Auth && c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("read access token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// readJSON returns the body when the response declares JSON and the body
// parses; otherwise nil.
func readJSON(resp *http.Response) (json.RawMessage, error) {
	if !strings.Contains(resp.Header.Get("Content-Type"), contentTypeJSON) {
		_, err := io.Copy(io.Discard, resp.Body)
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, nil
	}
	return data, nil
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	if text == "" {
		return DefaultErrorMessage
	}
	return text
}
