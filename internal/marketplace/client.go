package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/auth"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
)

const (
	defaultTimeout             = 10 * time.Second
	responseBodyReadLimit int64 = 4096
)

var errBaseURLRequired = errors.New("marketplace base url is required")

// Client talks to the marketplace REST backend on behalf of the signed-in buyer.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds the marketplace client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("parse marketplace base url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// errorEnvelope is the backend's failure body.
type errorEnvelope struct {
	Message string `json:"message"`
}

// do executes the request and decodes a 2xx body into out. Non-2xx
// responses become validation errors (4xx) or dependency errors (5xx).
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "marketplace client not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal marketplace request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build marketplace request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := auth.AccessTokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute marketplace request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(method, path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode marketplace response")
	}
	return nil
}

func statusError(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	var envelope errorEnvelope
	_ = json.Unmarshal(raw, &envelope)
	message := strings.TrimSpace(envelope.Message)
	details := map[string]any{"status": resp.StatusCode, "endpoint": method + " " + path}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "marketplace rejected the credentials").WithDetails(details)
	case resp.StatusCode == http.StatusTooManyRequests:
		return pkgerrors.New(pkgerrors.CodeRateLimit, "marketplace rate limit exceeded").WithDetails(details)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		if message == "" {
			message = "marketplace rejected the request"
		}
		return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
	default:
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "marketplace request failed").WithDetails(details)
	}
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}
