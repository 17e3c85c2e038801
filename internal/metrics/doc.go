// Package metrics exposes Prometheus counters for catalog lookups and organize
// runs. A CLI process is short lived, so the registry is exported as a node
// exporter textfile after each run instead of being served over HTTP.
package metrics
