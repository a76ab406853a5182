package commands

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// TokenInfo is the decoded view of an access token. Claims are read without
// verifying the signature.
type TokenInfo struct {
	Preview   string                 `json:"preview"              yaml:"preview"`
	Subject   string                 `json:"subject,omitempty"    yaml:"subject,omitempty"`
	Issuer    string                 `json:"issuer,omitempty"     yaml:"issuer,omitempty"`
	ExpiresAt *time.Time             `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Valid     bool                   `json:"valid"                yaml:"valid"`
	Claims    map[string]interface{} `json:"claims,omitempty"     yaml:"claims,omitempty"`
}

// NewTokenCommand creates the token command group.
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Show identity tokens",
		Long:  "Acquire, print and decode the OTDS tokens used by the CLI",
	}

	cmd.AddCommand(newTokenPrintCommand())
	cmd.AddCommand(newTokenInspectCommand())

	return cmd
}

func newTokenPrintCommand() *cobra.Command {
	var (
		service bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print an access token",
		Long:  "Acquire an access token and print it, for use with other tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := acquireToken(cmd, service, refresh)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)

			return nil
		},
	}

	cmd.Flags().BoolVar(&service, "service", false, "print the service token instead of the user token")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "force a new token")

	return cmd
}

func newTokenInspectCommand() *cobra.Command {
	var service bool

	cmd := &cobra.Command{
		Use:   "inspect [TOKEN]",
		Short: "Decode a token",
		Long:  "Decode the claims of a JWT access token without verifying it. Without an argument the current token is used.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string

			if len(args) == 1 {
				token = args[0]
			} else {
				acquired, err := acquireToken(cmd, service, false)
				if err != nil {
					return err
				}

				token = acquired
			}

			info, err := inspectToken(token, time.Now())
			if err != nil {
				return err
			}

			return renderOutput(cmd.OutOrStdout(), info, func(w io.Writer) error {
				return renderTokenInfo(w, info)
			})
		},
	}

	cmd.Flags().BoolVar(&service, "service", false, "inspect the service token instead of the user token")

	return cmd
}

func acquireToken(cmd *cobra.Command, service, refresh bool) (string, error) {
	ctx := commandContext(cmd)

	client, err := newClient(ctx)
	if err != nil {
		return "", err
	}

	var token string
	if service {
		token, err = client.Tokens().ServiceAccessToken(ctx, refresh)
	} else {
		token, err = client.Tokens().AccessToken(ctx, refresh)
	}

	if err != nil {
		return "", fmt.Errorf("failed to acquire token: %w", err)
	}

	return token, nil
}

// inspectToken decodes the claims of a JWT. now decides validity.
func inspectToken(token string, now time.Time) (*TokenInfo, error) {
	claims := jwt.MapClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrInvalidJWTFormat, err)
	}

	info := &TokenInfo{
		Preview: previewToken(token),
		Claims:  claims,
	}

	info.Subject, _ = claims.GetSubject()
	info.Issuer, _ = claims.GetIssuer()

	expiresAt, err := claims.GetExpirationTime()
	if err == nil && expiresAt != nil {
		expiry := expiresAt.UTC()
		info.ExpiresAt = &expiry
		info.Valid = now.Add(constants.TokenExpirationBuffer).Before(expiry)
	}

	return info, nil
}

// tokenExpiry returns the expiry claim of a JWT, if it has one.
func tokenExpiry(token string) (*time.Time, error) {
	info, err := inspectToken(token, time.Now())
	if err != nil {
		return nil, err
	}

	if info.ExpiresAt == nil {
		return nil, constants.ErrNoExpirationClaim
	}

	return info.ExpiresAt, nil
}

func previewToken(token string) string {
	if len(token) <= constants.TokenPreviewLength {
		return token
	}

	return token[:constants.TokenPreviewLength] + "..."
}

func renderTokenInfo(w io.Writer, info *TokenInfo) error {
	table := tablewriter.NewWriter(w)
	table.Header("Claim", "Value")

	_ = table.Append("token", info.Preview)
	_ = table.Append("valid", fmt.Sprintf("%t", info.Valid))

	if info.ExpiresAt != nil {
		_ = table.Append("expires", info.ExpiresAt.Format(time.RFC3339))
	}

	keys := make([]string, 0, len(info.Claims))
	for key := range info.Claims {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	for _, key := range keys {
		_ = table.Append(key, fmt.Sprintf("%v", info.Claims[key]))
	}

	return renderTable(table)
}

// grantStatus is one row of the login report.
type grantStatus struct {
	Grant   string `json:"grant"             yaml:"grant"`
	Status  string `json:"status"            yaml:"status"`
	Expires string `json:"expires,omitempty" yaml:"expires,omitempty"`
	Error   string `json:"error,omitempty"   yaml:"error,omitempty"`
}

func describeGrant(grant, token string, err error) grantStatus {
	status := grantStatus{Grant: grant, Status: "ok"}

	if err != nil {
		status.Status = "failed"
		status.Error = err.Error()

		if backendErr, ok := exstream.AsBackendError(err); ok && backendErr.Hint() != "" {
			status.Error += " (" + backendErr.Hint() + ")"
		}

		return status
	}

	expiry, expiryErr := tokenExpiry(token)
	if expiryErr == nil {
		status.Expires = expiry.Format(time.RFC3339)
	}

	return status
}
