package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/exstream-client/internal/auth"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// Tokens served by fakeTokenSource.
const (
	testUserToken    = "user-token"
	testServiceToken = "service-token"
)

// fakeTokenSource serves fixed tokens per grant and counts forced refreshes.
type fakeTokenSource struct {
	forced atomic.Int32
	err    error
}

func (f *fakeTokenSource) GetToken(ctx context.Context, forceRefresh bool) (*auth.Token, error) {
	if forceRefresh {
		f.forced.Add(1)
	}

	if f.err != nil {
		return nil, f.err
	}

	return &auth.Token{AccessToken: testUserToken, TokenType: "Bearer"}, nil
}

func (f *fakeTokenSource) GetServiceToken(ctx context.Context, forceRefresh bool) (*auth.Token, error) {
	if forceRefresh {
		f.forced.Add(1)
	}

	if f.err != nil {
		return nil, f.err
	}

	return &auth.Token{AccessToken: testServiceToken, TokenType: "Bearer"}, nil
}

// recordingLogger keeps every message with its level.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, level+" "+msg)
}

func (l *recordingLogger) Debug(msg string, _ map[string]interface{}) { l.record("debug", msg) }
func (l *recordingLogger) Info(msg string, _ map[string]interface{})  { l.record("info", msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.record("warn", msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.record("error", msg) }

func (l *recordingLogger) lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.messages...)
}

// testConfig returns a normalized hosted configuration pointing every
// service at baseURL.
func testConfig(baseURL string) *exstream.Config {
	config := &exstream.Config{
		Mode:             exstream.DeploymentHosted,
		IdentityURL:      baseURL + "/otds",
		DesignURL:        baseURL,
		OrchestrationURL: baseURL,
		EmpowerURL:       baseURL,
		EntitlementURL:   baseURL,
		Tenant:           "t1",
		SubscriptionName: "acme",
		ClientID:         "public-client",
		Username:         "designer",
		Password:         "secret",
	}
	config.Normalize()

	return config
}

// newTestClient starts a server running handler and returns a client whose
// services all point at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *fakeTokenSource) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	source := &fakeTokenSource{}

	client, err := NewWithTokenSource(testConfig(server.URL), source)
	require.NoError(t, err)

	return client, source
}

// writeJSON writes body with a JSON content type.
func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
