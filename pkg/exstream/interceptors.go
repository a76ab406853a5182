package exstream

import (
	"context"
	"fmt"
	"net/http"
)

// Metadata keys set by the built-in interceptors.
const (
	MetadataCachedResponse = "cached_response"
	MetadataCacheKey       = "cache_key"
)

// Request represents an HTTP request that can be intercepted.
type Request struct {
	Method   string
	// Path is the full request URI including the query string.
	Path     string
	Headers  http.Header
	Body     []byte
	Metadata map[string]interface{}
}

// Response represents an HTTP response that can be intercepted.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

// RequestInterceptor is called before a request is sent.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor is called after a response is received.
type ResponseInterceptor func(ctx context.Context, req *Request, resp *Response) error

// InterceptorChain manages a chain of interceptors.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates a new interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{
		requestInterceptors:  make([]RequestInterceptor, 0),
		responseInterceptors: make([]ResponseInterceptor, 0),
	}
}

// AddRequestInterceptor adds a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)
}

// AddResponseInterceptor adds a response interceptor to the chain.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)
}

// Empty reports whether the chain has no interceptors.
func (c *InterceptorChain) Empty() bool {
	return c == nil || (len(c.requestInterceptors) == 0 && len(c.responseInterceptors) == 0)
}

// ChainInterceptors joins chains, in order, into a new chain. Nil chains
// are skipped.
func ChainInterceptors(chains ...*InterceptorChain) *InterceptorChain {
	joined := NewInterceptorChain()

	for _, chain := range chains {
		if chain == nil {
			continue
		}

		joined.requestInterceptors = append(joined.requestInterceptors, chain.requestInterceptors...)
		joined.responseInterceptors = append(joined.responseInterceptors, chain.responseInterceptors...)
	}

	return joined
}

// ExecuteRequestInterceptors runs all request interceptors.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	for _, interceptor := range c.requestInterceptors {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors runs all response interceptors.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, resp *Response) error {
	for _, interceptor := range c.responseInterceptors {
		err := interceptor(ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// LoggingInterceptor logs requests.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		logger.Debug("API Request", map[string]interface{}{
			"method": req.Method,
			"path":   req.Path,
		})

		return nil
	}
}

// LoggingResponseInterceptor logs responses. Backend rejections are logged
// at warn level since the caller also receives them as errors.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		fields := map[string]interface{}{
			"method":      req.Method,
			"path":        req.Path,
			"status_code": resp.StatusCode,
		}

		switch {
		case resp.Error != nil:
			fields["error"] = resp.Error.Error()
			logger.Error("API Response Error", fields)
		case resp.StatusCode >= http.StatusBadRequest:
			logger.Warn("API Response Error", fields)
		default:
			logger.Debug("API Response", fields)
		}

		return nil
	}
}

// HeaderInterceptor adds custom headers to requests.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		for key, value := range headers {
			req.Headers.Set(key, value)
		}

		return nil
	}
}

// CacheRequestInterceptor looks the request up in the cache. On a hit the
// cached body is placed in Metadata[MetadataCachedResponse] and the caller
// skips the round trip.
func CacheRequestInterceptor(manager *CacheManager, policy *CachingPolicy) RequestInterceptor {
	if policy == nil {
		policy = DefaultCachingPolicy()
	}

	return func(ctx context.Context, req *Request) error {
		if !policy.ShouldCache(req.Method, req.Path, http.StatusOK) {
			return nil
		}

		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		key := manager.GetCacheKey(req.Method, req.Path)
		req.Metadata[MetadataCacheKey] = key

		data, err := manager.Get(ctx, key)
		if err == nil {
			req.Metadata[MetadataCachedResponse] = data
		}

		return nil
	}
}

// CacheResponseInterceptor stores cacheable responses and drops the whole
// cache after any successful mutation.
func CacheResponseInterceptor(manager *CacheManager, policy *CachingPolicy) ResponseInterceptor {
	if policy == nil {
		policy = DefaultCachingPolicy()
	}

	return func(ctx context.Context, req *Request, resp *Response) error {
		if resp.Error != nil {
			return nil
		}

		if req.Method != http.MethodGet && resp.StatusCode < http.StatusBadRequest {
			return manager.InvalidateAll(ctx)
		}

		if !policy.ShouldCache(req.Method, req.Path, resp.StatusCode) {
			return nil
		}

		if _, hit := req.Metadata[MetadataCachedResponse]; hit {
			return nil
		}

		key, ok := req.Metadata[MetadataCacheKey].(string)
		if !ok {
			key = manager.GetCacheKey(req.Method, req.Path)
		}

		return manager.SetWithETag(ctx, key, resp.Body, resp.Headers.Get("ETag"), 0)
	}
}

// NewCachingChain builds a chain wired to the given cache configuration.
func NewCachingChain(config *CacheConfig) (*InterceptorChain, *CacheManager, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	cache, err := NewCacheFromConfig(config)
	if err != nil {
		return nil, nil, err
	}

	manager := NewCacheManager(cache, config.Options)
	manager.scope = config.Scope

	chain := NewInterceptorChain()
	chain.AddRequestInterceptor(CacheRequestInterceptor(manager, config.Policy))
	chain.AddResponseInterceptor(CacheResponseInterceptor(manager, config.Policy))

	return chain, manager, nil
}
