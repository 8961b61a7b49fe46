// Package netutil provides the HTTP plumbing shared by the registry client
// and the content fetcher: bounded retries, per-attempt timeouts, response
// size limiting, and URL normalization for cache keys.
package netutil

import (
	"net/http"
	"strconv"
	"time"
)

// RetryTransport wraps an http.RoundTripper with a bounded retry loop.
// Every attempt runs under the same per-attempt timeout; transient transport
// errors and retryable status codes back off exponentially, honoring
// Retry-After when the server sends one.
type RetryTransport struct {
	// Base is the underlying transport. Default: http.DefaultTransport.
	Base http.RoundTripper

	// OnRetry is called before each retry with the 1-based attempt number,
	// the wait duration, and the status code (0 on transport error).
	OnRetry func(attempt int, wait time.Duration, statusCode int)

	// Attempts is the total number of tries per request. Default: 3.
	Attempts int

	// InitialBackoff is the first retry delay. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps retry delays. Default: 30s.
	MaxBackoff time.Duration
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	initial := t.InitialBackoff
	if initial == 0 {
		initial = time.Second
	}
	maxBackoff := t.MaxBackoff
	if maxBackoff == 0 {
		maxBackoff = 30 * time.Second
	}

	var lastErr error
	var lastResp *http.Response

	for attempt := 0; attempt < attempts; attempt++ {
		clone := req.Clone(req.Context())
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			clone.Body = body
		}

		resp, err := base.RoundTrip(clone)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				// The run deadline expired; retrying cannot help.
				return nil, err
			}
			if attempt < attempts-1 {
				wait := t.backoff(attempt, initial, maxBackoff, nil)
				if t.OnRetry != nil {
					t.OnRetry(attempt+1, wait, 0)
				}
				time.Sleep(wait)
			}
			continue
		}

		if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		lastResp = resp
		lastErr = nil
		if attempt < attempts-1 {
			wait := t.backoff(attempt, initial, maxBackoff, resp)
			if t.OnRetry != nil {
				t.OnRetry(attempt+1, wait, resp.StatusCode)
			}
			_ = resp.Body.Close()
			time.Sleep(wait)
		}
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, lastErr
}

// backoff computes the wait before the next attempt, honoring a Retry-After
// header expressed as either seconds or an HTTP date.
func (t *RetryTransport) backoff(attempt int, initial, maxBackoff time.Duration, resp *http.Response) time.Duration {
	if resp != nil {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				return clampDuration(time.Duration(seconds)*time.Second, initial, maxBackoff)
			}
			if at, err := http.ParseTime(retryAfter); err == nil {
				return clampDuration(time.Until(at), initial, maxBackoff)
			}
		}
	}
	return clampDuration(initial*(1<<attempt), initial, maxBackoff)
}

func clampDuration(d, minimum, maximum time.Duration) time.Duration {
	if d < minimum {
		return minimum
	}
	if d > maximum {
		return maximum
	}
	return d
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsRetryableStatus reports whether a status code indicates a transient
// server-side condition worth retrying.
func IsRetryableStatus(statusCode int) bool {
	return isRetryableStatus(statusCode)
}
