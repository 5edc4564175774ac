package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout is the per-request timeout of the upstream HTTP client.
const DefaultTimeout = 10 * time.Second

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource implements Source over the upstream JSON API.
type HTTPSource struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL, e.g. https://example.net/dev_task
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Optional outbound rate limiter
}

// NewHTTPSource creates an HTTP source with its own client.
// A zero timeout falls back to DefaultTimeout; a non-positive rate limit disables limiting.
func NewHTTPSource(baseURL string, timeout time.Duration, rateLimit int, log *slog.Logger) *HTTPSource {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var limiter *rate.Limiter
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), rateLimit)
	}

	return NewHTTPSourceWithClient(&http.Client{Timeout: timeout}, baseURL, limiter, log)
}

// NewHTTPSourceWithClient allows injecting a custom HTTP client and limiter.
func NewHTTPSourceWithClient(client HTTPClient, baseURL string, limiter *rate.Limiter, log *slog.Logger) *HTTPSource {
	return &HTTPSource{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		limiter: limiter,
	}
}

// Fetch performs GET {base}/{resource} and decodes the JSON body.
// Network failures and timeouts come back as *TransportError, non-2xx statuses as *HTTPError.
func (s *HTTPSource) Fetch(ctx context.Context, resource Resource) (any, error) {
	if resource != Branches && resource != ATMs {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Resource: resource, Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	reqURL, err := url.JoinPath(s.baseURL, string(resource))
	if err != nil {
		return nil, fmt.Errorf("failed to build request URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	s.log.DebugContext(ctx, "HTTP request", "method", req.Method, "url", reqURL)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.DebugContext(ctx, "HTTP request failed", "url", reqURL, "error", err)
		return nil, &TransportError{Resource: resource, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Resource: resource, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	s.log.DebugContext(ctx, "HTTP response", "status", resp.StatusCode, "url", reqURL)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		s.log.ErrorContext(ctx, "Upstream API error", "status", resp.StatusCode, "resource", resource)
		return nil, &HTTPError{Resource: resource, Status: resp.StatusCode, Body: truncate(string(body))}
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var payload any
	if err = decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode /%s response: %w", resource, err)
	}

	return payload, nil
}
