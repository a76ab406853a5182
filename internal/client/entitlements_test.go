package client

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestEntitlementsClient(t *testing.T) {
	t.Parallel()

	t.Run("token from response header", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			call := calls.Add(1)

			assert.Equal(t, "/ets/v1/search", r.URL.Path)
			assert.Equal(t, "entitlement", r.URL.Query().Get("query"))
			assert.Equal(t, "public-client", r.URL.Query().Get("clientId"))
			assert.Equal(t, "designer", r.URL.Query().Get("userId"))
			assert.Equal(t, "acme", r.URL.Query().Get("subscriptionName"))
			assert.Equal(t, "application/hal+json", r.Header.Get("Accept"))
			assert.Equal(t, "Bearer "+testUserToken, r.Header.Get("Authorization"))

			w.Header().Set("ETSToken", fmt.Sprintf("ets-%d", call))
			w.WriteHeader(http.StatusOK)
		})

		token, err := client.Entitlements().GetToken(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, "ets-1", token)

		token, err = client.Entitlements().GetToken(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, "ets-1", token)
		assert.Equal(t, int32(1), calls.Load())

		token, err = client.Entitlements().GetToken(context.Background(), true)
		require.NoError(t, err)
		assert.Equal(t, "ets-2", token)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("slots are per user and subscription", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("ETSToken", "ets-"+r.URL.Query().Get("userId"))
		})

		first, err := client.Entitlements().GetTokenFor(context.Background(), "alice", "", false)
		require.NoError(t, err)
		second, err := client.Entitlements().GetTokenFor(context.Background(), "bob", "", false)
		require.NoError(t, err)

		assert.Equal(t, "ets-alice", first)
		assert.Equal(t, "ets-bob", second)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("missing header", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		_, err := client.Entitlements().GetToken(context.Background(), false)
		require.ErrorIs(t, err, exstream.ErrEntitlementTokenMissing)
	})

	t.Run("service rejects request", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusForbidden, `{"status":403,"error":"Forbidden","message":"no entitlement"}`)
		})

		_, err := client.Entitlements().GetToken(context.Background(), false)

		backendErr, ok := exstream.AsBackendError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, backendErr.HTTPStatus)
	})

	t.Run("no entitlement service configured", func(t *testing.T) {
		t.Parallel()

		config := testConfig("http://localhost")
		config.EntitlementURL = ""

		client, err := NewWithTokenSource(config, &fakeTokenSource{})
		require.NoError(t, err)

		_, err = client.Entitlements().GetToken(context.Background(), false)
		require.ErrorIs(t, err, constants.ErrNoEntitlementURL)
	})

	t.Run("waiter survives cancellation of the first caller", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		arrived := make(chan struct{}, 1)
		gate := make(chan struct{})

		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			arrived <- struct{}{}
			<-gate
			w.Header().Set("ETSToken", "ets-shared")
		})

		leaderCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		leaderErr := make(chan error, 1)

		go func() {
			_, err := client.Entitlements().GetToken(leaderCtx, false)
			leaderErr <- err
		}()

		<-arrived

		waiter := make(chan string, 1)

		go func() {
			token, err := client.Entitlements().GetToken(context.Background(), false)
			assert.NoError(t, err)
			waiter <- token
		}()

		time.Sleep(20 * time.Millisecond)
		cancel()
		require.ErrorIs(t, <-leaderErr, context.Canceled)

		close(gate)

		assert.Equal(t, "ets-shared", <-waiter)
		assert.Equal(t, int32(1), calls.Load())
	})
}
