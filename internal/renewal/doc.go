// Package renewal decides when an access token must be renewed and runs renewals
// single-flight.
//
// # Policy
//
// [Policy] is pure: it decodes the token's claims and compares the injected clock with
// either the hard expiry or the proactive renewal point
// (iat + (exp-iat) * Threshold), all in milliseconds.
//
// # Coordinator
//
// [Coordinator] holds the in-flight flag and the ordered waiter list under one mutex.
// The first caller starts a cycle and performs the backend call; callers arriving while
// the flag is set join the cycle and receive exactly its outcome. The flag is cleared
// and the list emptied in a deferred settle, whether the cycle succeeded, failed,
// timed out, or panicked.
//
// # Architecture boundaries
//
// The coordinator owns no I/O. The refresh token source, the backend call, persistence
// and clearing are supplied through [Deps] by the root client.
//
// # What this package must NOT do
//
//   - Import goAuthClient (to avoid import cycles).
//   - Attach tokens to requests or retry them.
//   - Hold process-wide state; every Coordinator is independent.
package renewal
