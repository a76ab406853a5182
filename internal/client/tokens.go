package client

import (
	"context"

	"github.com/fivetwenty-io/exstream-client/internal/auth"
)

// TokenSource hands out identity tokens for both grants.
type TokenSource = auth.Source

// StaticTokenSource serves one caller-supplied token for both grants.
type StaticTokenSource struct {
	manager *auth.StaticTokenManager
}

// NewStaticTokenSource creates a source serving token.
func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{manager: auth.NewStaticTokenManager(token)}
}

// GetToken returns the static token. Forcing a refresh fails.
func (s *StaticTokenSource) GetToken(ctx context.Context, forceRefresh bool) (*auth.Token, error) {
	if forceRefresh {
		return nil, s.manager.RefreshToken(ctx)
	}

	_, err := s.manager.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	return s.manager.Token(), nil
}

// GetServiceToken returns the static token. Forcing a refresh fails.
func (s *StaticTokenSource) GetServiceToken(ctx context.Context, forceRefresh bool) (*auth.Token, error) {
	return s.GetToken(ctx, forceRefresh)
}

// TokensClient implements exstream.TokensClient.
type TokensClient struct {
	source TokenSource
}

// NewTokensClient creates a tokens client over source.
func NewTokensClient(source TokenSource) *TokensClient {
	return &TokensClient{source: source}
}

// AccessToken returns the delegated access token.
func (c *TokensClient) AccessToken(ctx context.Context, forceRefresh bool) (string, error) {
	token, err := c.source.GetToken(ctx, forceRefresh)
	if err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

// ServiceAccessToken returns the service access token.
func (c *TokensClient) ServiceAccessToken(ctx context.Context, forceRefresh bool) (string, error) {
	token, err := c.source.GetServiceToken(ctx, forceRefresh)
	if err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

// Token returns the full delegated token including the expiry hint.
func (c *TokensClient) Token(ctx context.Context, forceRefresh bool) (*auth.Token, error) {
	return c.source.GetToken(ctx, forceRefresh)
}
