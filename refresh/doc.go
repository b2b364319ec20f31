// Package refresh encodes and decodes the opaque rotating refresh tokens issued by the
// reference backend in authtest.
//
// # Token format
//
// A token is base64url (no padding) over 52 bytes: a 16-byte family ID, a big-endian
// 32-bit generation counter and a 32-byte random secret. Servers keep only the
// SHA-256 of the secret.
//
// # Architecture boundaries
//
// This package owns the wire format. Rotation and reuse detection belong to whoever
// stores the families.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Import goAuthClient or credstore.
//
// The client never parses refresh tokens; it stores and forwards them verbatim.
package refresh
