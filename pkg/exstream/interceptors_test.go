package exstream_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

var errRejected = errors.New("rejected")

type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, msg)
}

func (l *recordingLogger) Debug(msg string, _ map[string]interface{}) { l.record(msg) }
func (l *recordingLogger) Info(msg string, _ map[string]interface{})  { l.record(msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.record(msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.record(msg) }

func TestInterceptorChain_Order(t *testing.T) {
	t.Parallel()

	var calls []string

	chain := exstream.NewInterceptorChain()
	assert.True(t, chain.Empty())

	chain.AddRequestInterceptor(func(ctx context.Context, req *exstream.Request) error {
		calls = append(calls, "first")

		return nil
	})
	chain.AddRequestInterceptor(func(ctx context.Context, req *exstream.Request) error {
		calls = append(calls, "second")

		return nil
	})

	require.NoError(t, chain.ExecuteRequestInterceptors(context.Background(), &exstream.Request{}))
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.False(t, chain.Empty())
}

func TestInterceptorChain_StopsOnError(t *testing.T) {
	t.Parallel()

	called := false

	chain := exstream.NewInterceptorChain()
	chain.AddResponseInterceptor(func(ctx context.Context, req *exstream.Request, resp *exstream.Response) error {
		return errRejected
	})
	chain.AddResponseInterceptor(func(ctx context.Context, req *exstream.Request, resp *exstream.Response) error {
		called = true

		return nil
	})

	err := chain.ExecuteResponseInterceptors(context.Background(), &exstream.Request{}, &exstream.Response{})
	require.ErrorIs(t, err, errRejected)
	assert.False(t, called)
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	req := &exstream.Request{}
	err := exstream.HeaderInterceptor(map[string]string{"X-Trace": "1"})(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1", req.Headers.Get("X-Trace"))
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	req := &exstream.Request{Method: http.MethodGet, Path: "http://h/design/api/v1/domains"}

	require.NoError(t, exstream.LoggingInterceptor(logger)(context.Background(), req))
	require.NoError(t, exstream.LoggingResponseInterceptor(logger)(context.Background(), req, &exstream.Response{StatusCode: 500}))

	assert.Equal(t, []string{"API Request", "API Response Error"}, logger.messages)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestCachingChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	chain, manager, err := exstream.NewCachingChain(nil)
	require.NoError(t, err)

	get := func() *exstream.Request {
		return &exstream.Request{Method: http.MethodGet, Path: "http://h/design/api/v1/domains"}
	}

	first := get()
	require.NoError(t, chain.ExecuteRequestInterceptors(ctx, first))
	assert.NotContains(t, first.Metadata, exstream.MetadataCachedResponse)

	resp := &exstream.Response{StatusCode: http.StatusOK, Headers: http.Header{}, Body: []byte(`{"data":[]}`)}
	require.NoError(t, chain.ExecuteResponseInterceptors(ctx, first, resp))

	second := get()
	require.NoError(t, chain.ExecuteRequestInterceptors(ctx, second))
	assert.Equal(t, []byte(`{"data":[]}`), second.Metadata[exstream.MetadataCachedResponse])

	mutation := &exstream.Request{Method: http.MethodPut, Path: "http://h/design/api/v1/resources/d/1/state"}
	require.NoError(t, chain.ExecuteRequestInterceptors(ctx, mutation))
	require.NoError(t, chain.ExecuteResponseInterceptors(ctx, mutation, &exstream.Response{StatusCode: http.StatusOK}))

	third := get()
	require.NoError(t, chain.ExecuteRequestInterceptors(ctx, third))
	assert.NotContains(t, third.Metadata, exstream.MetadataCachedResponse)

	stats := manager.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestCachingChain_ErrorsNotCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	chain, _, err := exstream.NewCachingChain(nil)
	require.NoError(t, err)

	req := &exstream.Request{Method: http.MethodGet, Path: "http://h/design/api/v1/domains"}
	require.NoError(t, chain.ExecuteRequestInterceptors(ctx, req))
	require.NoError(t, chain.ExecuteResponseInterceptors(ctx, req, &exstream.Response{StatusCode: http.StatusNotFound, Headers: http.Header{}}))

	again := &exstream.Request{Method: http.MethodGet, Path: req.Path}
	require.NoError(t, chain.ExecuteRequestInterceptors(ctx, again))
	assert.NotContains(t, again.Metadata, exstream.MetadataCachedResponse)
}

func TestCachingChain_ScopesShareBackend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := exstream.NewMemoryCache(10)

	acme, acmeManager, err := exstream.NewCachingChain(&exstream.CacheConfig{
		Backend: backend,
		Scope:   exstream.CacheScope("Sample", "Acme"),
	})
	require.NoError(t, err)

	globex, _, err := exstream.NewCachingChain(&exstream.CacheConfig{
		Backend: backend,
		Scope:   exstream.CacheScope("sample", "globex"),
	})
	require.NoError(t, err)

	path := "http://h/design/api/v1/domains"
	assert.Equal(t, "sample/acme|GET:"+path, acmeManager.GetCacheKey(http.MethodGet, path))

	stored := &exstream.Request{Method: http.MethodGet, Path: path}
	require.NoError(t, acme.ExecuteRequestInterceptors(ctx, stored))
	require.NoError(t, acme.ExecuteResponseInterceptors(ctx, stored,
		&exstream.Response{StatusCode: http.StatusOK, Headers: http.Header{}, Body: []byte(`{"data":[{"id":"acme"}]}`)}))

	other := &exstream.Request{Method: http.MethodGet, Path: path}
	require.NoError(t, globex.ExecuteRequestInterceptors(ctx, other))
	assert.NotContains(t, other.Metadata, exstream.MetadataCachedResponse)

	same := &exstream.Request{Method: http.MethodGet, Path: path}
	require.NoError(t, acme.ExecuteRequestInterceptors(ctx, same))
	assert.Equal(t, []byte(`{"data":[{"id":"acme"}]}`), same.Metadata[exstream.MetadataCachedResponse])
}

func TestCacheScope(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "sample/acme", exstream.CacheScope("Sample", "ACME"))
	assert.Equal(t, "sample", exstream.CacheScope("sample", ""))
}
