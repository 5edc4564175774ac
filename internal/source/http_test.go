package source_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/UnknownOlympus/branchmap/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// mockHTTPClient is a mock implementation of HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func respond(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(_ *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
		}, nil
	}
}

func TestHTTPSource_Fetch(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()

	t.Run("success - decodes branch payload", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, http.MethodGet, req.Method)
				assert.Equal(t, "https://example.net/dev_task/branches", req.URL.String())
				assert.Equal(t, "application/json", req.Header.Get("Accept"))

				return respond(http.StatusOK, `{"branches":[{"id":"B1","name":"Main","lat":50.08,"lon":"14.42"}]}`)(req)
			},
		}

		src := source.NewHTTPSourceWithClient(mockClient, "https://example.net/dev_task/", nil, logger)
		payload, err := src.Fetch(ctx, source.Branches)

		require.NoError(t, err)
		obj, ok := payload.(map[string]any)
		require.True(t, ok)
		branches, ok := obj["branches"].([]any)
		require.True(t, ok)
		require.Len(t, branches, 1)
		first := branches[0].(map[string]any)
		assert.Equal(t, json.Number("50.08"), first["lat"])
		assert.Equal(t, "14.42", first["lon"])
	})

	t.Run("success - atms path", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, "/dev_task/atms", req.URL.Path)
				return respond(http.StatusOK, `[]`)(req)
			},
		}

		src := source.NewHTTPSourceWithClient(mockClient, "https://example.net/dev_task", nil, logger)
		payload, err := src.Fetch(ctx, source.ATMs)

		require.NoError(t, err)
		assert.Equal(t, []any{}, payload)
	})

	t.Run("error - unknown resource", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				t.Fatal("no request expected")
				return nil, nil
			},
		}

		src := source.NewHTTPSourceWithClient(mockClient, "https://example.net", nil, logger)
		payload, err := src.Fetch(ctx, source.Resource("users"))

		require.Nil(t, payload)
		require.ErrorIs(t, err, source.ErrUnknownResource)
	})

	t.Run("error - network failure", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, assert.AnError
			},
		}

		src := source.NewHTTPSourceWithClient(mockClient, "https://example.net", nil, logger)
		payload, err := src.Fetch(ctx, source.Branches)

		require.Nil(t, payload)
		require.True(t, source.IsTransport(err))
		require.ErrorIs(t, err, assert.AnError)

		var transportErr *source.TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, source.Branches, transportErr.Resource)
		assert.Contains(t, err.Error(), "network error calling /branches")
	})

	t.Run("error - HTTP status with truncated body", func(t *testing.T) {
		longBody := strings.Repeat("x", 500)
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusInternalServerError, longBody)}

		src := source.NewHTTPSourceWithClient(mockClient, "https://example.net", nil, logger)
		payload, err := src.Fetch(ctx, source.ATMs)

		require.Nil(t, payload)
		require.False(t, source.IsTransport(err))

		var httpErr *source.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
		assert.Len(t, httpErr.Body, 400)
		assert.Equal(t, "HTTP 500 from /atms: "+strings.Repeat("x", 400), err.Error())
	})

	t.Run("error - HTTP status keeps short body", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusNotFound, "not here")}

		src := source.NewHTTPSourceWithClient(mockClient, "https://example.net", nil, logger)
		_, err := src.Fetch(ctx, source.Branches)

		require.EqualError(t, err, "HTTP 404 from /branches: not here")
	})

	t.Run("error - invalid JSON", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusOK, `invalid json`)}

		src := source.NewHTTPSourceWithClient(mockClient, "https://example.net", nil, logger)
		payload, err := src.Fetch(ctx, source.Branches)

		require.Nil(t, payload)
		require.False(t, source.IsTransport(err))
		assert.Contains(t, err.Error(), "failed to decode /branches response")
	})

	t.Run("error - rate limiter wait cancelled", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				t.Fatal("no request expected")
				return nil, nil
			},
		}
		limiter := rate.NewLimiter(rate.Limit(1), 1)
		require.True(t, limiter.Allow())

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		src := source.NewHTTPSourceWithClient(mockClient, "https://example.net", limiter, logger)
		_, err := src.Fetch(cctx, source.Branches)

		require.True(t, source.IsTransport(err))
	})
}

func TestNewHTTPSource(t *testing.T) {
	logger := slog.Default()

	t.Run("success - real client", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/dev_task/branches", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[]}`))
		}))
		defer server.Close()

		src := source.NewHTTPSource(server.URL+"/dev_task", 0, 5, logger)
		payload, err := src.Fetch(t.Context(), source.Branches)

		require.NoError(t, err)
		assert.Equal(t, map[string]any{"data": []any{}}, payload)
	})

	t.Run("error - client timeout is a transport error", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		src := source.NewHTTPSource(server.URL, 50*time.Millisecond, 0, logger)
		_, err := src.Fetch(t.Context(), source.ATMs)

		require.Error(t, err)
		assert.True(t, source.IsTransport(err))
		assert.False(t, errors.Is(err, source.ErrUnknownResource))
	})
}
