package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNew(t *testing.T) {
	t.Parallel()
	t.Run("requires config", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), nil)
		require.ErrorIs(t, err, ErrConfigRequired)
	})

	t.Run("creates client with access token", func(t *testing.T) {
		t.Parallel()

		config := testConfig("https://exstream.example.com")
		config.AccessToken = "test-token"

		client, err := New(context.Background(), config)
		require.NoError(t, err)
		assert.NotNil(t, client)

		token, err := client.Tokens().AccessToken(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, "test-token", token)

		_, err = client.Tokens().AccessToken(context.Background(), true)
		require.ErrorIs(t, err, exstream.ErrStaticTokenCannotRefresh)
	})

	t.Run("creates client with credentials", func(t *testing.T) {
		t.Parallel()

		client, err := New(context.Background(), testConfig("https://exstream.example.com"))
		require.NoError(t, err)
		assert.NotNil(t, client.Resources())
		assert.NotNil(t, client.Links())
		assert.NotNil(t, client.Outputs())
		assert.NotNil(t, client.Editor())
		assert.NotNil(t, client.Entitlements())
		assert.Nil(t, client.Cache())
	})

	t.Run("rejects unknown cache type", func(t *testing.T) {
		t.Parallel()

		config := testConfig("https://exstream.example.com")
		config.Cache = &exstream.CacheConfig{Type: "redis"}

		_, err := New(context.Background(), config)
		require.ErrorIs(t, err, exstream.ErrUnsupportedCacheType)
	})

	t.Run("requires token source", func(t *testing.T) {
		t.Parallel()

		_, err := NewWithTokenSource(testConfig("https://exstream.example.com"), nil)
		require.ErrorIs(t, err, ErrNoTokenManagerConfigured)
	})
}

// TestClient_SharedTokenSlot drives the real identity flow: the delegated
// and service grants share one slot, so the first token serves both.
func TestClient_SharedTokenSlot(t *testing.T) {
	t.Parallel()

	var tokenCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/otds/otdstenant/t1/oauth2/token":
			tokenCalls.Add(1)

			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "password", r.PostForm.Get("grant_type"))
			assert.Equal(t, "search otds:groups subscription:acme", r.PostForm.Get("scope"))

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "otds-token",
				"token_type":   "Bearer",
				"expires_in":   1800,
			})
		case strings.HasPrefix(r.URL.Path, "/design/"):
			assert.Equal(t, "Bearer otds-token", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, `{"data":[]}`)
		case strings.HasPrefix(r.URL.Path, "/orchestration/"):
			assert.Equal(t, "Bearer otds-token", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, `{"status":"success","data":[]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	registry := prometheus.NewRegistry()
	config := testConfig(server.URL)
	config.ServiceClientID = "svc"
	config.ServiceClientSecret = "svc-secret"
	config.MetricsRegisterer = registry

	client, err := New(context.Background(), config)
	require.NoError(t, err)

	_, err = client.Resources().ListDomains(context.Background())
	require.NoError(t, err)

	_, err = client.Outputs().Generate(context.Background(), "d1", generateRequest())
	require.NoError(t, err)

	assert.Equal(t, int32(1), tokenCalls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(client.Metrics().TokenRequests.WithLabelValues("password", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(client.Metrics().Requests.WithLabelValues("design", "GET", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(client.Metrics().Requests.WithLabelValues("orchestration", "POST", "200")), 0)
}

func TestClient_ResponseCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, `{"data":[{"id":"d1"}]}`)
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.Cache = exstream.DefaultCacheConfig()

	client, err := NewWithTokenSource(config, &fakeTokenSource{})
	require.NoError(t, err)
	require.NotNil(t, client.Cache())

	for range 2 {
		domains, listErr := client.Resources().ListDomains(context.Background())
		require.NoError(t, listErr)
		assert.Len(t, domains, 1)
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(1), client.Cache().GetStats().Hits)

	scope := exstream.CacheScope(config.Tenant, config.SubscriptionName)
	assert.True(t, strings.HasPrefix(client.Cache().GetCacheKey(http.MethodGet, server.URL), scope+"|GET:"))
	assert.Empty(t, config.Cache.Scope)
}

func TestClient_Interceptors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "run-7", r.Header.Get("X-Correlation-ID"))

		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusOK, `{"data":[{"id":"d1"}]}`)

			return
		}

		writeJSON(w, http.StatusNotFound, `{"status":404,"error":"Not Found","message":"no resource"}`)
	}))
	defer server.Close()

	logger := &recordingLogger{}
	custom := exstream.NewInterceptorChain()
	custom.AddRequestInterceptor(exstream.HeaderInterceptor(map[string]string{"X-Correlation-ID": "run-7"}))

	config := testConfig(server.URL)
	config.Logger = logger
	config.Interceptors = custom
	config.Cache = exstream.DefaultCacheConfig()

	client, err := NewWithTokenSource(config, &fakeTokenSource{})
	require.NoError(t, err)

	_, err = client.Resources().ListDomains(context.Background())
	require.NoError(t, err)

	_, err = client.Resources().ListDomains(context.Background())
	require.NoError(t, err, "second call is served from the cache")

	_, err = client.Outputs().GetVersion(context.Background())
	require.Error(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{
		"debug API Request",
		"debug API Response",
		"debug API Request",
		"debug API Request",
		"warn API Response Error",
	}, filterAPILines(logger.lines()))
}

func filterAPILines(lines []string) []string {
	var api []string

	for _, line := range lines {
		if strings.Contains(line, " API ") {
			api = append(api, line)
		}
	}

	return api
}

func TestTokensClient(t *testing.T) {
	t.Parallel()

	source := &fakeTokenSource{}
	tokens := NewTokensClient(source)

	token, err := tokens.AccessToken(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, testUserToken, token)

	token, err = tokens.ServiceAccessToken(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, testServiceToken, token)
	assert.Equal(t, int32(1), source.forced.Load())

	full, err := tokens.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", full.TokenType)

	source.err = &exstream.AuthenticationError{Grant: "password", StatusCode: http.StatusUnauthorized}

	_, err = tokens.AccessToken(context.Background(), false)
	assert.True(t, exstream.IsAuthenticationError(err))
}

func TestEditorClient(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/empower/api/v1/version", r.URL.Path)
		assert.Equal(t, "Bearer "+testUserToken, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"header":{"status":"OK"},"body":{"versionString":"24.1.0","major":"24"}}`)
	})

	info, err := client.Editor().GetVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "24.1.0", info.VersionString)

	url := client.Editor().OpenDocumentURL("doc-42")
	assert.Contains(t, url, "/empower/api/v1/docedit/doc-42/open?")
	assert.Contains(t, url, "subscription=acme")
	assert.Contains(t, url, "hosted=true")
}
