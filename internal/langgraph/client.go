// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package langgraph

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
	"sync/atomic"

	"github.com/mia-platform/e2ekit/internal/e2e"
	"github.com/mia-platform/e2ekit/internal/info"
	"github.com/mia-platform/e2ekit/internal/logger"
)

const (
	loggerName = "langgraph"

	statusCodeErrorRangeStart = 400
)

var _ e2e.Client = &Client{}

type authConfig struct {
	apiKey       string
	clientID     string
	clientSecret string
	tokenURL     string
}

// Client talks to a LangGraph server. It is safe for concurrent use.
type Client struct {
	baseURL   string
	auth      authConfig
	transport http.RoundTripper

	client atomic.Pointer[http.Client]
}

// Option customizes a Client.
type Option func(*Client)

// WithAPIKey sends key in the x-api-key header of every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.auth.apiKey = key
	}
}

// WithClientCredentials authenticates with an OAuth2 client-credentials token from tokenURL.
func WithClientCredentials(clientID, clientSecret, tokenURL string) Option {
	return func(c *Client) {
		c.auth.clientID = clientID
		c.auth.clientSecret = clientSecret
		c.auth.tokenURL = tokenURL
	}
}

// WithTransport replaces the base transport, http.DefaultTransport by default.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = transport
	}
}

// NewClient returns a Client bound to serverURL, which must be an absolute http or https URL.
func NewClient(serverURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidURL, serverURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w %q: scheme must be http or https", ErrInvalidURL, serverURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%w %q: missing host", ErrInvalidURL, serverURL)
	}

	client := &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func newFromConfig(_ context.Context, cfg e2e.ClientConfig) (e2e.Client, error) {
	opts := make([]Option, 0, 2)
	if len(cfg.APIKey) > 0 {
		opts = append(opts, WithAPIKey(cfg.APIKey))
	}
	if len(cfg.ClientID) > 0 {
		opts = append(opts, WithClientCredentials(cfg.ClientID, cfg.ClientSecret, cfg.AuthEndpoint))
	}

	client, err := NewClient(cfg.URL, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) URL() string {
	return c.baseURL
}

func (c *Client) Ok(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ok", nil, nil)
}

func (c *Client) Info(ctx context.Context) (map[string]any, error) {
	var info map[string]any
	if err := c.do(ctx, http.MethodGet, "/info", nil, &info); err != nil {
		return nil, err
	}
	return info, nil
}

func (c *Client) SearchAssistants(ctx context.Context, query map[string]any) ([]map[string]any, error) {
	if query == nil {
		query = map[string]any{}
	}

	var assistants []map[string]any
	if err := c.do(ctx, http.MethodPost, "/assistants/search", query, &assistants); err != nil {
		return nil, err
	}
	return assistants, nil
}

func (c *Client) CreateThread(ctx context.Context, metadata map[string]any) (map[string]any, error) {
	body := map[string]any{}
	if metadata != nil {
		body["metadata"] = metadata
	}

	var thread map[string]any
	if err := c.do(ctx, http.MethodPost, "/threads", body, &thread); err != nil {
		return nil, err
	}
	return thread, nil
}

func (c *Client) GetThread(ctx context.Context, threadID string) (map[string]any, error) {
	var thread map[string]any
	if err := c.do(ctx, http.MethodGet, "/threads/"+url.PathEscape(threadID), nil, &thread); err != nil {
		return nil, err
	}
	return thread, nil
}

func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	return c.do(ctx, http.MethodDelete, "/threads/"+url.PathEscape(threadID), nil, nil)
}

func (c *Client) WaitRun(ctx context.Context, threadID, assistantID string, input map[string]any) (map[string]any, error) {
	body := map[string]any{
		"assistant_id": assistantID,
		"input":        input,
	}

	var values map[string]any
	requestPath := "/threads/" + url.PathEscape(threadID) + "/runs/wait"
	if err := c.do(ctx, http.MethodPost, requestPath, body, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// do sends a JSON request and decodes a successful response into out when out is not nil.
func (c *Client) do(ctx context.Context, method, requestPath string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return handleError(0, err)
		}
		body = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, body)
	if err != nil {
		return handleError(0, err)
	}

	request.Header.Set("User-Agent", info.UserAgent())
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	log := logger.Named(ctx, loggerName)
	log.Trace("sending request", "method", method, "path", requestPath)

	//nolint:contextcheck // the token source outlives the single request
	resp, err := c.getClient(context.Background()).Do(request)
	if err != nil {
		return handleError(0, err)
	}
	defer resp.Body.Close()

	log.Debug("received response", "method", method, "path", requestPath, "statusCode", resp.StatusCode)

	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusUnauthorized:
		return handleError(resp.StatusCode, errUnauthorized)
	case http.StatusNotFound:
		return handleError(resp.StatusCode, errNotFound)
	case http.StatusNoContent:
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return handleError(resp.StatusCode, err)
	}

	if resp.StatusCode >= statusCodeErrorRangeStart {
		return handleError(resp.StatusCode, errorFromBody(data))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return handleError(resp.StatusCode, err)
	}
	return nil
}

// errorFromBody extracts the server message from a FastAPI style {"detail": ...}
// or a {"message": ...} error body.
func errorFromBody(data []byte) error {
	var errResp map[string]any
	if err := json.Unmarshal(data, &errResp); err == nil {
		for _, key := range []string{"detail", "message"} {
			if msg, ok := errResp[key].(string); ok && len(msg) > 0 {
				return errors.New(msg)
			}
		}
	}
	return errUnexpectedResponse
}

func (c *Client) getClient(ctx context.Context) *http.Client {
	client := c.client.Load()
	if client != nil {
		return client
	}

	client = &http.Client{
		Transport: newTransport(ctx, c.transport, c.auth),
	}
	if !c.client.CompareAndSwap(nil, client) {
		return c.client.Load()
	}
	return client
}
