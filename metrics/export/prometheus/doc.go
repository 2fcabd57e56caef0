// Package prometheus renders forumauth metrics in the Prometheus text
// exposition format.
//
// [NewExporter] reads an [forumauth.Engine] and exposes an [http.Handler].
// Counters are named forumauth_*_total. The validate and hash latency
// histograms use the engine's fixed buckets. Revocation registry sizes are
// published as gauges when the registry is process-local.
//
// The package never registers anything globally; callers mount the Handler.
package prometheus
