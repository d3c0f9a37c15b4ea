// Package metrics defines the Prometheus collectors exported by the visualizer
// on /metrics. Collectors are registered against an explicit registerer so
// tests can use a private registry.
package metrics
