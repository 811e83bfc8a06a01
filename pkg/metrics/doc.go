// Package metrics exposes Prometheus counters for rule evaluations, fail-open
// events, editor emissions, submissions and HTTP traffic.
package metrics
