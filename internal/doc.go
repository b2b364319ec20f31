// Package internal holds the parts of goAuthClient that are private to the module.
//
// # Sub-packages
//
//   - renewal: expiry policy and the single-flight renewal coordinator
//   - flows: login and logout orchestration over injected backend and store calls
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAuthClient API.
//   - Be imported by any package outside the goAuthClient module.
package internal
