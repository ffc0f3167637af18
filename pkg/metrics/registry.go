// Package metrics provides Prometheus metrics collection for net-store
// components.
//
// All metrics are optional - if the registry is not initialized, constructors
// return no-op implementations with zero overhead, so the stores run with or
// without metrics collection enabled.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all net-store metrics.
	// Write-once via registryOnce, read-many afterwards.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// Call once before creating metrics instances, typically from main. Safe to
// call multiple times; subsequent calls are ignored. If never called,
// constructors return no-op metrics.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry, or nil when metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether metrics collection is enabled.
func IsEnabled() bool {
	return GetRegistry() != nil
}
