// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api implements the note service's REST transport: authenticated,
// retried, rate-limited request/response calls against a knowledge base
// server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/note-export/internal/httputil"
	"github.com/pdiddy/note-export/pkg/types"
)

// Auth supplies credentials and the knowledge base binding for API calls.
// Credential acquisition itself (login, session management) lives outside
// this package.
type Auth interface {
	// Headers returns the auth headers attached to every request.
	Headers() map[string]string

	// RefreshToken renews the auth token after a 401.
	RefreshToken() error

	KbGUID() string
	KbServer() string
	UserGUID() string
	UserName() string
}

// AvatarURL derives the authenticated user's avatar URL from the knowledge
// base server, used as the socket handshake fallback.
func AvatarURL(auth Auth) string {
	return fmt.Sprintf("%s/as/user/avatar/%s", auth.KbServer(), auth.UserGUID())
}

// ErrUnauthorized is returned when a call still fails with HTTP 401 after
// one token refresh.
var ErrUnauthorized = errors.New("unauthorized after token refresh")

const defaultPageSize = 100

// Client is the REST transport client. All of its operations share one
// rate limiter, so bursts across methods are serialized rather than
// rejected.
type Client struct {
	auth      Auth
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	pageSize  int
}

// NewClient creates a REST client bound to the auth collaborator's
// knowledge base. A RateLimitPerSecond of zero disables rate limiting.
func NewClient(auth Auth, cfg types.APIConfig) *Client {
	limit := rate.Inf
	if cfg.RateLimitPerSecond > 0 {
		limit = rate.Limit(cfg.RateLimitPerSecond)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		auth:      auth,
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: cfg.UserAgent,
		pageSize:  defaultPageSize,
	}
}

// request issues one API call: rate limit, auth headers, transient-failure
// retry, and a single token refresh on 401. Paths starting with "/" are
// resolved against the knowledge base server; absolute URLs pass through.
// The caller owns the response body.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := path
	if len(path) > 0 && path[0] == '/' {
		reqURL = c.auth.KbServer() + path
	}
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	resp, err := c.do(ctx, method, reqURL, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if err := c.auth.RefreshToken(); err != nil {
			return nil, fmt.Errorf("refreshing token: %w", err)
		}
		resp, err = c.do(ctx, method, reqURL, body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, ErrUnauthorized
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
	}

	return resp, nil
}

func (c *Client) do(ctx context.Context, method, reqURL string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range c.auth.Headers() {
		req.Header.Set(k, v)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return httputil.DoWithRetry(ctx, c.http, req, 0)
}

// envelope is the service's optional response wrapper. Some endpoints
// return bare JSON, others wrap it with a return code.
type envelope struct {
	ReturnCode    int             `json:"returnCode"`
	ReturnMessage string          `json:"returnMessage"`
	Result        json.RawMessage `json:"result"`
}

// decodeResult decodes a response body into v, unwrapping the returnCode
// envelope when present.
func decodeResult(body io.Reader, v any) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.ReturnCode != 0 {
		if env.ReturnCode != 200 {
			return fmt.Errorf("service error %d: %s", env.ReturnCode, env.ReturnMessage)
		}
		if env.Result != nil {
			data = env.Result
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
