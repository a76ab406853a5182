package auth

import (
	"context"

	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// StaticTokenManager serves a caller-supplied bearer token and never calls
// the identity service.
type StaticTokenManager struct {
	token string
}

// NewStaticTokenManager creates a manager serving token.
func NewStaticTokenManager(token string) *StaticTokenManager {
	return &StaticTokenManager{token: token}
}

// GetToken returns the static token.
func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	if m.token == "" {
		return "", &exstream.AuthenticationError{Grant: "static", Err: exstream.ErrEmptyAccessToken}
	}

	return m.token, nil
}

// RefreshToken always fails: a static token has no grant to renew it.
func (m *StaticTokenManager) RefreshToken(ctx context.Context) error {
	return &exstream.AuthenticationError{Grant: "static", Err: exstream.ErrStaticTokenCannotRefresh}
}

// Token returns the static token as a Token value.
func (m *StaticTokenManager) Token() *Token {
	return &Token{AccessToken: m.token, TokenType: "bearer"}
}
