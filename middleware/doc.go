// Package middleware provides the server half of bearer authentication: handlers that
// verify the Authorization header a goAuthClient Transport attaches.
//
// # Guards
//
//   - [Guard] verifies the token and optionally consults a server-side check.
//   - [RequireBearer] is signature and expiry verification only.
//   - [RequireActive] adds the server-side check, for revocation.
//   - [RequireRole] restricts a guarded handler to one role.
//
// Rejections are 401 with a WWW-Authenticate header, which the client treats as an
// authentication rejection and answers with one renewal and one retry.
//
// # What this package must NOT do
//
//   - Issue tokens.
//   - Make decisions beyond pass or reject.
package middleware
