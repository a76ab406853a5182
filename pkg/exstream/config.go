package exstream

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Defaults applied by Normalize.
const (
	DefaultIdentityURL     = "http://localhost/otds"
	DefaultServiceURL      = "http://localhost/"
	DefaultTenant          = "sample"
	DefaultEntitlementPath = "/ets/v1"
)

// Normalize fills defaults and canonicalizes URLs in place.
func (c *Config) Normalize() {
	if c.Mode == "" {
		c.Mode = DeploymentHosted
	}

	c.Mode = DeploymentMode(strings.ToLower(string(c.Mode)))

	c.IdentityURL = normalizeURL(c.IdentityURL, DefaultIdentityURL)
	c.DesignURL = normalizeURL(c.DesignURL, DefaultServiceURL)
	c.OrchestrationURL = normalizeURL(c.OrchestrationURL, DefaultServiceURL)
	c.EmpowerURL = normalizeURL(c.EmpowerURL, DefaultServiceURL)

	if c.EntitlementURL != "" {
		c.EntitlementURL = normalizeURL(c.EntitlementURL, "")
	}

	if c.EntitlementPath == "" {
		c.EntitlementPath = DefaultEntitlementPath
	}

	if c.Tenant == "" {
		c.Tenant = DefaultTenant
	}
}

// normalizeURL trims a trailing slash and adds "https://" if no scheme is present.
func normalizeURL(raw, fallback string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = fallback
	}

	if value == "" {
		return ""
	}

	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		value = "https://" + value
	}

	return strings.TrimSuffix(value, "/")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(DeploymentHosted, DeploymentLocal)),
		validation.Field(&c.IdentityURL, validation.Required, is.URL),
		validation.Field(&c.DesignURL, validation.Required, is.URL),
		validation.Field(&c.OrchestrationURL, validation.Required, is.URL),
		validation.Field(&c.EmpowerURL, validation.Required, is.URL),
		validation.Field(&c.EntitlementURL, is.URL),
		validation.Field(&c.Tenant, validation.Required),
		validation.Field(&c.SubscriptionName, validation.When(c.Mode.IsHosted() && c.AccessToken == "", validation.Required)),
		validation.Field(&c.Password, validation.When(c.Username != "", validation.Required)),
		validation.Field(&c.ServiceClientSecret, validation.When(c.ServiceClientID != "", validation.Required)),
		validation.Field(&c.RetryMax, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// HasUserCredentials reports whether the password grant can be used.
func (c *Config) HasUserCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// HasServiceCredentials reports whether the client_credentials grant can be used.
func (c *Config) HasServiceCredentials() bool {
	return c.ServiceClientID != "" && c.ServiceClientSecret != ""
}
