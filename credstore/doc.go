// Package credstore persists the caller's credential pair together with the claims
// decoded from its access token.
//
// # Record model
//
// A [Record] is the unit of persistence: the access/refresh [Pair] plus the derived
// claims. Save writes the whole record in one step so readers never observe a new access
// token next to stale claims. Clear removes every owned key in one step and is
// idempotent.
//
// # Key space
//
// Every backend stores the same flat field map produced by [Encode]:
// accessToken, refreshToken, userId, subject, email, roles (JSON array), expiresAt and
// an optional issuedAt.
//
// # Backends
//
//   - [MemoryStore]: process-local, used by tests and short-lived tools.
//   - [RedisStore]: one hash per profile, written in MULTI/EXEC.
//   - [SSMStore]: one SecureString parameter holding the JSON-encoded field map.
//
// # What this package must NOT do
//
//   - Import goAuthClient or internal/renewal (no upward imports).
//   - Decide whether a token needs renewal.
//   - Verify token signatures.
package credstore
