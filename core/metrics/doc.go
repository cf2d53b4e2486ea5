// Package metrics defines interfaces and implementations for collecting
// conformance metrics. Sinks like PromSink and InfluxSink record one entry
// per scored group and can be combined with NewMultiSink. The factory helpers
// return a MultiSink automatically when multiple sinks are configured.
package metrics
