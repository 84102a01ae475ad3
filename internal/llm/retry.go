package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pdfworkflow/internal/pipeline"
)

const (
	defaultMaxAttempts = 3
	initialBackoff     = 500 * time.Millisecond
	maxBackoff         = 5 * time.Second
)

// shouldRetry reports whether a status code is worth retrying.
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// backoffFor doubles the initial backoff per attempt, capped at maxBackoff.
func backoffFor(attempt int) time.Duration {
	backoff := initialBackoff << attempt
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

// doWithRetry executes reqFunc with bounded retries and exponential backoff.
// Network errors and retryable status codes are retried; other responses are
// returned as-is. Exhaustion surfaces as an external-service error.
func (c *Client) doWithRetry(ctx context.Context, reqFunc func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := reqFunc()
		if err == nil {
			if !shouldRetry(resp.StatusCode) {
				return resp, nil
			}
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			resp.Body.Close()
		} else {
			lastErr = err
		}

		if attempt == c.maxAttempts-1 {
			break
		}

		backoff := backoffFor(attempt)
		c.logger.Warn("Analysis request failed, retrying",
			"attempt", attempt+1, "max_attempts", c.maxAttempts, "backoff", backoff, "error", lastErr)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, pipeline.ExternalServiceError(
		fmt.Sprintf("analysis request failed after %d attempts", c.maxAttempts), lastErr)
}
