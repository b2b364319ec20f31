// Package jwt reads access-token claims for renewal scheduling and issues signed access
// tokens for identity backends.
//
// # Decoding
//
// [Decode] is the client-side path. It decodes only the payload segment of a compact JWT
// and never verifies the signature: the client trusts tokens handed to it by the backend
// and only needs the timing and identity fields to decide when to renew.
//
// # Issuing
//
// [Issuer] signs and verifies tokens with Ed25519 or HS256. It backs the authtest
// identity server and any Go backend that wants to speak the same claims shape.
//
// # What this package must NOT do
//
//   - Access storage or the network.
//   - Import goAuthClient, credstore, or renewal.
package jwt
