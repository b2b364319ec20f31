// Package goAuthClient keeps a caller's session credentials alive: it stores the access
// and refresh token pair, decides when the access token needs renewing, renews it at
// most once at a time no matter how many requests notice, and authorizes outgoing HTTP
// requests with a single retry after an authentication rejection.
//
// Client methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goAuthClient is the public surface. It exposes [Client], [Builder], [Config],
// [Transport] and value types (SessionStatus, MetricsSnapshot, AuditEvent). Claims
// decoding and token issuance live in jwt, storage in credstore, and renewal scheduling
// and single-flight coordination under internal/.
//
// # Renewal
//
// A token past [Config].Renewal.Threshold of its lifetime is still sent while a
// background renewal runs. A missing or hard-expired token blocks the request on a
// synchronous renewal. Concurrent callers share one backend call; when it fails every
// caller receives the same error and the stored credentials are cleared before any of
// them observes it.
//
// # What this package must NOT do
//
//   - Send a bearer token to the login or renewal endpoints.
//   - Retry a request more than once.
//   - Verify token signatures; the backend owns that.
package goAuthClient
