// Package collector reads host operational state into structured metric
// snapshots. Each subsystem (CPU, memory, disk, network, uptime, processes,
// host identity) is a Collector; a Registry fans them out per cycle and a
// Sampler assembles their results into a validated models.MetricSnapshot.
package collector

import "context"

// Collector is the interface implemented by every metric subsystem reader.
type Collector interface {
	// Name returns the unique identifier for this collector.
	Name() string

	// Collect gathers the metric data and returns it.
	// The context allows for cancellation and timeout control.
	Collect(ctx context.Context) (interface{}, error)

	// IsAvailable checks if this collector can run on the current platform.
	// Collectors that return false will not be registered.
	IsAvailable() bool
}
