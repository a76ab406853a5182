package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
	"github.com/fivetwenty-io/exstream-client/internal/metrics"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// Grant types used against the identity service.
const (
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
)

// Scope tokens requested from the identity service.
const (
	ScopeGroups             = "otds:groups"
	ScopeSearch             = "search"
	ScopeSubscriptionPrefix = "subscription:"
)

// ScopesFor returns the scope list of a deployment mode. Hosted deployments
// also request search and the subscription scope.
func ScopesFor(mode exstream.DeploymentMode, subscriptionName string) []string {
	if mode.IsLocal() {
		return []string{ScopeGroups}
	}

	return []string{ScopeSearch, ScopeGroups, ScopeSubscriptionPrefix + subscriptionName}
}

// OTDSConfig configures an OTDSTokenProvider.
type OTDSConfig struct {
	TokenURL string
	Scopes   []string

	// ClientID, Username and Password drive the password grant.
	ClientID string
	Username string
	Password string

	// ServiceClientID and ServiceClientSecret drive the client_credentials grant.
	ServiceClientID     string
	ServiceClientSecret string

	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	Logger     exstream.Logger
}

// OTDSTokenProvider acquires tokens from the identity service and caches the
// most recent one, of either grant, in a single slot. The slot is reused
// until a caller forces a refresh; the expiry hint is never consulted.
// Concurrent callers that miss the slot share one in-flight request.
type OTDSTokenProvider struct {
	config *OTDSConfig
	store  *TokenStore
	group  singleflight.Group
}

// NewOTDSTokenProvider creates a provider with an empty slot.
func NewOTDSTokenProvider(config *OTDSConfig) *OTDSTokenProvider {
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}

	return &OTDSTokenProvider{
		config: config,
		store:  NewTokenStore(),
	}
}

// GetToken returns the cached token or acquires one with the password grant.
func (p *OTDSTokenProvider) GetToken(ctx context.Context, forceRefresh bool) (*Token, error) {
	return p.token(ctx, GrantPassword, forceRefresh)
}

// GetServiceToken returns the cached token or acquires one with the
// client_credentials grant.
func (p *OTDSTokenProvider) GetServiceToken(ctx context.Context, forceRefresh bool) (*Token, error) {
	return p.token(ctx, GrantClientCredentials, forceRefresh)
}

// Store exposes the shared slot.
func (p *OTDSTokenProvider) Store() *TokenStore {
	return p.store
}

// slotKey is the single singleflight key of the token slot. Both grants
// share it because they fill the same slot.
const slotKey = "slot"

func (p *OTDSTokenProvider) token(ctx context.Context, grant string, forceRefresh bool) (*Token, error) {
	if forceRefresh {
		return p.acquire(ctx, grant)
	}

	if cached := p.store.Get(); cached != nil && cached.AccessToken != "" {
		return cached, nil
	}

	results := p.group.DoChan(slotKey, func() (interface{}, error) {
		// Another caller may have filled the slot while we waited.
		if cached := p.store.Get(); cached != nil && cached.AccessToken != "" {
			return cached, nil
		}

		// The acquisition is shared, so no single caller may cancel it.
		acquireCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DefaultHTTPTimeout)
		defer cancel()

		return p.acquire(acquireCtx, grant)
	})

	select {
	case <-ctx.Done():
		return nil, &exstream.AuthenticationError{Grant: grant, Err: ctx.Err()}
	case result := <-results:
		if result.Err != nil {
			return nil, result.Err
		}

		token, _ := result.Val.(*Token)

		return token, nil
	}
}

// acquire issues exactly one token request and replaces the slot on success.
func (p *OTDSTokenProvider) acquire(ctx context.Context, grant string) (*Token, error) {
	if p.config.Logger != nil {
		p.config.Logger.Debug("Requesting identity token", map[string]interface{}{
			"grant":     grant,
			"token_url": p.config.TokenURL,
		})
	}

	if p.config.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.config.HTTPClient)
	}

	start := time.Now()

	var (
		oauthToken *oauth2.Token
		err        error
	)

	switch grant {
	case GrantClientCredentials:
		if p.config.ServiceClientID == "" || p.config.ServiceClientSecret == "" {
			return nil, &exstream.AuthenticationError{Grant: grant, Err: exstream.ErrServiceCredentialsMissing}
		}

		ccConfig := &clientcredentials.Config{
			ClientID:     p.config.ServiceClientID,
			ClientSecret: p.config.ServiceClientSecret,
			TokenURL:     p.config.TokenURL,
			Scopes:       p.config.Scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		}

		oauthToken, err = ccConfig.Token(ctx)
	default:
		if p.config.Username == "" || p.config.Password == "" {
			return nil, &exstream.AuthenticationError{Grant: grant, Err: exstream.ErrUserCredentialsMissing}
		}

		passwordConfig := &oauth2.Config{
			ClientID: p.config.ClientID,
			Endpoint: oauth2.Endpoint{
				TokenURL:  p.config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: p.config.Scopes,
		}

		oauthToken, err = passwordConfig.PasswordCredentialsToken(ctx, p.config.Username, p.config.Password)
	}

	p.config.Metrics.ObserveTokenRequest(grant, err == nil, time.Since(start))

	if err != nil {
		return nil, authError(grant, p.config.TokenURL, err)
	}

	if oauthToken.AccessToken == "" {
		return nil, &exstream.AuthenticationError{Grant: grant, Err: exstream.ErrEmptyAccessToken}
	}

	token := &Token{
		AccessToken:  oauthToken.AccessToken,
		RefreshToken: oauthToken.RefreshToken,
		TokenType:    oauthToken.TokenType,
		ExpiresAt:    oauthToken.Expiry,
	}

	if !oauthToken.Expiry.IsZero() {
		token.ExpiresIn = int(time.Until(oauthToken.Expiry).Round(time.Second).Seconds())
	}

	p.store.Set(token)

	return token, nil
}

// authError maps an oauth2 failure to an AuthenticationError. Connection
// failures additionally carry a TransportError.
func authError(grant, tokenURL string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		authErr := &exstream.AuthenticationError{Grant: grant, Err: err}
		if retrieveErr.Response != nil {
			authErr.StatusCode = retrieveErr.Response.StatusCode
		}

		switch {
		case retrieveErr.ErrorCode != "" && retrieveErr.ErrorDescription != "":
			authErr.Message = retrieveErr.ErrorCode + ": " + retrieveErr.ErrorDescription
		case retrieveErr.ErrorCode != "":
			authErr.Message = retrieveErr.ErrorCode
		default:
			authErr.Message = strings.TrimSpace(string(retrieveErr.Body))
		}

		// The message already carries the body.
		authErr.Err = nil

		return authErr
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &exstream.AuthenticationError{
			Grant: grant,
			Err:   &exstream.TransportError{Method: http.MethodPost, URL: tokenURL, Err: urlErr.Err},
		}
	}

	return &exstream.AuthenticationError{Grant: grant, Err: err}
}

// Source hands out identity tokens for both grants.
type Source interface {
	GetToken(ctx context.Context, forceRefresh bool) (*Token, error)
	GetServiceToken(ctx context.Context, forceRefresh bool) (*Token, error)
}

// GrantTokenManager adapts one grant of a Source to the token manager
// contract of the HTTP layer.
type GrantTokenManager struct {
	source  Source
	service bool
}

// NewGrantTokenManager creates a manager over source. It uses the
// client_credentials grant when service is set and the password grant
// otherwise.
func NewGrantTokenManager(source Source, service bool) *GrantTokenManager {
	return &GrantTokenManager{source: source, service: service}
}

func (m *GrantTokenManager) fetch(ctx context.Context, forceRefresh bool) (*Token, error) {
	if m.service {
		return m.source.GetServiceToken(ctx, forceRefresh)
	}

	return m.source.GetToken(ctx, forceRefresh)
}

// GetToken returns the cached access token, acquiring one on a miss.
func (m *GrantTokenManager) GetToken(ctx context.Context) (string, error) {
	token, err := m.fetch(ctx, false)
	if err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

// RefreshToken forces a new token into the slot.
func (m *GrantTokenManager) RefreshToken(ctx context.Context) error {
	_, err := m.fetch(ctx, true)

	return err
}
