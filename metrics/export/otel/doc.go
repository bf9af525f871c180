// Package otel bridges [authgate.Engine] counter snapshots to OpenTelemetry
// observable instruments. Registration is pull-based: the exporter reads a
// fresh snapshot on each collection callback, so the hot path pays only the
// cost of atomic increments.
package otel
