// Package prometheus renders goAuthClient metrics in the Prometheus text exposition
// format.
//
// [NewPrometheusExporter] wraps a [goAuthClient.Client] and exposes an [http.Handler].
// Counters are named goauthclient_*_total; the renewal latency histogram is
// goauthclient_renewal_latency_seconds.
//
// # What this package must NOT do
//
//   - Register anything in a global registry; callers mount the Handler.
//   - Mutate client state.
package prometheus
