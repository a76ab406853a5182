// Package exclient provides the primary entry point for constructing an
// Exstream client that implements the exstream.Client interface.
//
// It layers configuration, HTTP transport and identity-service
// authentication on top of the interfaces and types defined in the exstream
// package. Most applications import exclient to build a client, then use
// the returned exstream.Client to reach the service clients: Resources(),
// Links(), Outputs(), Editor(), Tokens() and Entitlements().
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/exstream-client/pkg/exclient"
//	  "github.com/fivetwenty-io/exstream-client/pkg/exstream"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // With a bearer token you already have:
//	  cli, err := exclient.NewWithToken(ctx, "https://exstream.example.com", "eyJhbGciOi...")
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with both grants against a hosted tenant:
//	  cli, err = exclient.New(ctx, &exstream.Config{
//	    IdentityURL:         "https://otds.example.com/otds",
//	    DesignURL:           "https://exstream.example.com",
//	    OrchestrationURL:    "https://exstream.example.com",
//	    EmpowerURL:          "https://exstream.example.com",
//	    Tenant:              "tenant-id",
//	    SubscriptionName:    "my-subscription",
//	    Username:            "designer",
//	    Password:            "secret",
//	    ClientID:            "public-client",
//	    ServiceClientID:     "service-client",
//	    ServiceClientSecret: "service-secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  domains, err := cli.Resources().ListDomains(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = domains
//	}
//
// Token refresh
//
// Tokens are cached until a caller forces a refresh. WithRefreshRetry and
// WithServiceRefreshRetry wrap a call so that a 401 forces a new token and
// the call runs once more:
//
//	outputs, err := exclient.WithServiceRefreshRetry(ctx, cli,
//	  func(ctx context.Context) ([]exstream.GeneratedOutput, error) {
//	    return cli.Outputs().Generate(ctx, "my-domain", request)
//	  })
//
// Configuration notes
//
//   - New normalizes the config in place: missing URLs default to
//     localhost, a missing scheme becomes https and trailing slashes are
//     dropped.
//   - Hosted mode requires SubscriptionName unless AccessToken is set.
//   - No retries are made unless RetryMax is set.
package exclient
