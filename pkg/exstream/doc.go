// Package exstream provides types, interfaces, and helpers for working with
// the Exstream design, orchestration and Empower services behind an OTDS
// identity service.
//
// # Overview
//
// The exstream package defines the domain types (e.g., ResourceVersion, Link,
// Manifest, ImportOutcome, GeneratedOutput) and the interfaces of the
// service clients (ResourcesClient, LinksClient, OutputsClient, EditorClient,
// TokensClient, EntitlementsClient). A concrete implementation is provided by
// the exclient package, which wires configuration, transport, and
// authentication.
//
// Getting a client
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
//	  cli, err := exclient.New(ctx, &exstream.Config{
//	    IdentityURL:      "https://otds.example.com/otds",
//	    DesignURL:        "https://exstream.example.com",
//	    OrchestrationURL: "https://exstream.example.com",
//	    EmpowerURL:       "https://exstream.example.com",
//	    Tenant:           "tenant-id",
//	    SubscriptionName: "my-subscription",
//	    Username:         "designer",
//	    Password:         "secret",
//	    ClientID:         "public-client",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  filter := exstream.NewResourceFilter().
//	    WithTypes(exstream.ResourceTypeCommunicationSet).
//	    WithLatestVersion(true)
//	  resources, err := cli.Resources().List(ctx, "my-domain", filter, nil)
//	  if err != nil { log.Fatal(err) }
//	  _ = resources
//	}
//
// # Filters and paging
//
// ResourceFilter expresses the type, state and latest-version filters of the
// resource store and the "rfilter" variants applied to recursive link
// traversal. PageInfo adds count and offset; a nil page uses the server
// defaults.
//
// # Errors
//
// Failed responses are classified into BackendError values. The primary
// schema carries a numeric status and an optional backend error code, the
// partial-failure schema carries one ItemStatus per failed item, and anything
// else is kept verbatim. Identity failures are AuthenticationError values and
// connection failures are TransportError values. Helpers such as IsNotFound,
// IsUnauthorized and IsImportConflict branch on common cases, and
// BackendError.Hint explains the well-known ones.
//
// # Interceptors and caching
//
// The package includes request/response interceptors (logging, headers,
// caching) and a pluggable Cache abstraction with memory and NATS KV
// backends. GET responses are cached only when a CacheConfig is supplied.
package exstream
