// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across transports.
package httputil

import (
	"context"
	"io"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// transient failures. Tests override this to avoid real sleeps.
var RetryBaseDelay = 1 * time.Second

const (
	defaultMaxAttempts = 3
	maxBackoff         = 10 * time.Second
)

// Retryable reports whether an HTTP status code is a transient failure
// worth retrying. 5xx responses are transient; everything else, including
// 401 and 429, is handled by the caller.
func Retryable(status int) bool {
	return status >= 500
}

// DoWithRetry executes an HTTP request and retries on network errors and
// 5xx responses with exponential backoff. The delay starts at
// RetryBaseDelay and doubles each attempt, capped at maxBackoff.
//
// When maxAttempts is 0 the default (3) is used. Before each retry the
// response body is drained and closed. If the context is cancelled during
// a backoff wait the function returns ctx.Err(). After exhausting attempts
// the last response (or last network error) is returned so the caller can
// inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxAttempts int) (*http.Response, error) {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		// Each attempt needs its own body; Clone shares the original reader.
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err == nil && !Retryable(resp.StatusCode) {
			return resp, nil
		}

		// Exhausted attempts: surface the last outcome as-is.
		if attempt >= maxAttempts-1 {
			return resp, err
		}

		// Drain and close the body before retrying.
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		backoff := RetryBaseDelay << attempt
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
