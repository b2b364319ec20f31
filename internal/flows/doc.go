// Package flows contains pure-function orchestrators for the Client's session entry
// points (login and logout).
//
// Each flow function accepts a typed dependency struct and returns a result value that
// classifies failures, so the root package can map them to errors, metrics and audit
// events without the flows knowing about any of those.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the backend and the credential store. They do NOT
// own either resource; ownership stays with the Client. Renewal is not a flow: it lives
// in internal/renewal because it carries state between calls.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goAuthClient (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency funcs.
package flows
