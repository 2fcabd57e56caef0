// Package otel publishes forumauth metrics through OpenTelemetry.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and
// one Int64ObservableGauge per histogram bucket. A single callback reads
// [forumauth.Engine.MetricsSnapshot] on every collection. Callers own the
// MeterProvider.
package otel
