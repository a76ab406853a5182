package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exhttp "github.com/fivetwenty-io/exstream-client/internal/http"
	"github.com/fivetwenty-io/exstream-client/internal/metrics"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// MockTokenManager for testing.
type MockTokenManager struct {
	token string
	err   error
}

func (m *MockTokenManager) GetToken(ctx context.Context) (string, error) {
	return m.token, m.err
}

func (m *MockTokenManager) RefreshToken(ctx context.Context) error {
	return nil
}

// MockLogger for testing.
type MockLogger struct {
	logs []map[string]interface{}
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "debug", "msg": msg, "fields": fields})
}

func (l *MockLogger) Info(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "info", "msg": msg, "fields": fields})
}

func (l *MockLogger) Warn(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "warn", "msg": msg, "fields": fields})
}

func (l *MockLogger) Error(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "error", "msg": msg, "fields": fields})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/design/api/v1/domains", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))

			response := map[string]string{"id": "domain-1", "workflow": "default"}
			_ = json.NewEncoder(writer).Encode(response)
		}))
		defer server.Close()

		tokenManager := &MockTokenManager{token: "test-token"}
		client := exhttp.NewClient(server.URL, tokenManager)

		req := &exhttp.Request{
			Method: "GET",
			Path:   "/design/api/v1/domains",
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result map[string]string

		err = json.Unmarshal(resp.Body, &result)
		require.NoError(t, err)
		assert.Equal(t, "domain-1", result["id"])
		assert.Equal(t, "default", result["workflow"])
	})

	t.Run("request with query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/design/api/v1/resources/d1", request.URL.Path)
			assert.Equal(t, "count=10&filter.types=font", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := exhttp.NewClient(server.URL, nil)

		req := &exhttp.Request{
			Method: "GET",
			Path:   "/design/api/v1/resources/d1?filter.types=font",
			Query:  url.Values{"count": []string{"10"}},
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("absolute URL ignores base", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/orchestration/api/v1/version", request.URL.Path)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := exhttp.NewClient("http://unused.invalid", nil)

		resp, err := client.Get(context.Background(), server.URL+"/orchestration/api/v1/version", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string][]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, []string{"doc-1"}, body["documentIds"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := exhttp.NewClient(server.URL, nil)

		req := &exhttp.Request{
			Method: "POST",
			Path:   "/fulfill",
			Body:   exstream.FulfillmentBody{DocumentIDs: []string{"doc-1"}},
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("raw body keeps content type", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "text/xml", request.Header.Get("Content-Type"))
			assert.Equal(t, "application/pdf", request.Header.Get("Accept"))

			body, _ := io.ReadAll(request.Body)
			assert.Equal(t, "<data/>", string(body))

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := exhttp.NewClient(server.URL, nil)

		resp, err := client.Do(context.Background(), &exhttp.Request{
			Method:      "POST",
			Path:        "/generate",
			RawBody:     []byte("<data/>"),
			ContentType: "text/xml",
			Accept:      "application/pdf",
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("error response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusConflict)
			_, _ = writer.Write([]byte(`{"timestamp":1,"status":409,"error":"Conflict","message":"import aborted","errorCode":309016}`))
		}))
		defer server.Close()

		client := exhttp.NewClient(server.URL, nil)

		req := &exhttp.Request{
			Method: "POST",
			Path:   "/design/api/v1/import/das/d1",
		}

		resp, err := client.Do(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, 409, resp.StatusCode)

		backendErr, ok := exstream.AsBackendError(err)
		require.True(t, ok)
		assert.Equal(t, exstream.KindPrimary, backendErr.Kind)
		assert.Equal(t, 309016, backendErr.Code)
		assert.Equal(t, "import aborted", backendErr.Message)
		assert.True(t, exstream.IsImportConflict(err))
	})

	t.Run("unparseable error response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusBadGateway)
			_, _ = writer.Write([]byte("<html>bad gateway</html>"))
		}))
		defer server.Close()

		client := exhttp.NewClient(server.URL, nil)

		_, err := client.Get(context.Background(), "/x", nil)
		backendErr, ok := exstream.AsBackendError(err)
		require.True(t, ok)
		assert.Equal(t, exstream.KindUnparseable, backendErr.Kind)
		assert.Equal(t, "<html>bad gateway</html>", string(backendErr.RawBody))
	})

	t.Run("token failure stops the request", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		tokenErr := &exstream.AuthenticationError{Grant: "password", StatusCode: 401}
		client := exhttp.NewClient(server.URL, &MockTokenManager{err: tokenErr})

		_, err := client.Get(context.Background(), "/x", nil)
		require.Error(t, err)
		assert.True(t, exstream.IsAuthenticationError(err))
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("transport failure", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {}))
		server.Close()

		client := exhttp.NewClient(server.URL, nil)

		resp, err := client.Get(context.Background(), "/x", nil)
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.True(t, exstream.IsTransportError(err))

		var transportErr *exstream.TransportError
		require.True(t, errors.As(err, &transportErr))
		assert.Equal(t, "GET", transportErr.Method)
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "comm-1", request.Header.Get("communicationId"))
			assert.Equal(t, "exstream-client/test", request.Header.Get("User-Agent"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := exhttp.NewClient(server.URL, nil, exhttp.WithUserAgent("exstream-client/test"))

		req := &exhttp.Request{
			Method: "GET",
			Path:   "/generate",
			Headers: map[string]string{
				"communicationId": "comm-1",
			},
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(writer).Encode(map[string]string{"result": "ok"})
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := exhttp.NewClient(server.URL, &MockTokenManager{token: "secret-token"},
			exhttp.WithLogger(logger), exhttp.WithDebug(true))

		req := &exhttp.Request{
			Method: "GET",
			Path:   "/design/api/v1/domains",
		}

		_, err := client.Do(context.Background(), req)
		require.NoError(t, err)

		// Should have logged request and response
		require.Len(t, logger.logs, 2)
		assert.Equal(t, "HTTP Request", logger.logs[0]["msg"])
		assert.Equal(t, "HTTP Response", logger.logs[1]["msg"])
		assert.NotContains(t, logger.logs[0]["fields"], "secret-token")
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Methods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		fn     func(*exhttp.Client, context.Context) (*exhttp.Response, error)
	}{
		{
			name:   "GET",
			method: "GET",
			fn: func(c *exhttp.Client, ctx context.Context) (*exhttp.Response, error) {
				return c.Get(ctx, "/test", nil)
			},
		},
		{
			name:   "PUT",
			method: "PUT",
			fn: func(c *exhttp.Client, ctx context.Context) (*exhttp.Response, error) {
				return c.Put(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "POST raw",
			method: "POST",
			fn: func(c *exhttp.Client, ctx context.Context) (*exhttp.Response, error) {
				return c.PostRaw(ctx, "/test", []byte("payload"), "application/octet-stream")
			},
		},
		{
			name:   "PUT raw",
			method: "PUT",
			fn: func(c *exhttp.Client, ctx context.Context) (*exhttp.Response, error) {
				return c.PutRaw(ctx, "/test", []byte("payload"), "application/octet-stream")
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.method, request.Method)
				assert.Equal(t, "/test", request.URL.Path)
				writer.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := exhttp.NewClient(server.URL, nil)
			resp, err := testCase.fn(client, context.Background())
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
		})
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()
	t.Run("no retries by default", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := exhttp.NewClient(server.URL, nil)

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.Equal(t, 503, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("retries on 5xx errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 3 {
				writer.WriteHeader(http.StatusInternalServerError)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := exhttp.NewClient(server.URL, nil, exhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("retries on rate limiting", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 2 {
				writer.WriteHeader(http.StatusTooManyRequests)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := exhttp.NewClient(server.URL, nil, exhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("does not retry on client errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)

			writer.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := exhttp.NewClient(server.URL, nil, exhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load()) // Should not retry
	})
}

func TestClient_Caching(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		calls.Add(1)

		writer.Header().Set("ETag", `"v1"`)
		_, _ = writer.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	chain, manager, err := exstream.NewCachingChain(nil)
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	client := exhttp.NewClient(server.URL, nil, exhttp.WithInterceptors(chain), exhttp.WithMetrics(m))

	for range 3 {
		resp, getErr := client.Get(context.Background(), "/design/api/v1/domains", nil)
		require.NoError(t, getErr)
		assert.JSONEq(t, `{"data":[]}`, string(resp.Body))
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.InDelta(t, 2, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")), 0)
	assert.Equal(t, `"v1"`, manager.ETag(context.Background(), "GET:"+server.URL+"/design/api/v1/domains"))

	_, err = client.Put(context.Background(), "/design/api/v1/resources/d1/r1/state", map[string]string{"state": "REVIEW"})
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/design/api/v1/domains", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Metrics(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	m := metrics.New(nil)
	client := exhttp.NewClient(server.URL, nil, exhttp.WithMetrics(m), exhttp.WithService("design"))

	_, err := client.Get(context.Background(), "/missing", nil)
	require.Error(t, err)
	assert.True(t, exstream.IsNotFound(err))
	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues("design", "GET", "404")), 0)
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	var out map[string]string

	require.NoError(t, exhttp.DecodeJSON(&exhttp.Response{Body: []byte(`{"a":"b"}`)}, &out))
	assert.Equal(t, "b", out["a"])

	err := exhttp.DecodeJSON(&exhttp.Response{Body: []byte("  ")}, &out)
	require.ErrorIs(t, err, exstream.ErrEmptyResponseBody)
}
