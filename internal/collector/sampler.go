package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/msle237-lees/homelab-agent/internal/models"
)

// Sampler assembles registry results into validated metric snapshots.
//
// Field policy: disks, network, uptime, and processes are independently
// optional — an unreadable subsystem leaves its field null and the snapshot
// is still emitted. CPU, memory, and the timestamp are required; if either
// CPU or memory cannot be read, Sample returns an error and the cycle's
// snapshot is discarded rather than emitted half-blind.
type Sampler struct {
	registry *Registry
	logger   *zap.Logger

	// start anchors the monotonic clock. time.Since reads the monotonic
	// component, so wall-clock jumps never distort MonotonicMS.
	start time.Time
}

// NewSampler creates a Sampler over the given registry.
func NewSampler(registry *Registry, logger *zap.Logger) *Sampler {
	return &Sampler{
		registry: registry,
		logger:   logger,
		start:    time.Now(),
	}
}

// Sample runs all collectors and assembles one snapshot. The counter
// baselines held by individual collectors are advanced as a side effect, so
// a discarded first sample still primes them.
func (s *Sampler) Sample(ctx context.Context) (*models.MetricSnapshot, error) {
	results := s.registry.CollectAll(ctx)

	snapshot := &models.MetricSnapshot{
		Timestamp:   time.Now().UTC(),
		MonotonicMS: time.Since(s.start).Milliseconds(),
		Status:      models.AgentStatus,
	}

	if data, ok := results["host"]; ok {
		if host, ok := data.(models.HostInfo); ok {
			snapshot.Host = host
		}
	}

	if data, ok := results["cpu"]; ok {
		if cpu, ok := data.(models.CPUMetrics); ok {
			snapshot.CPU = &cpu
		}
	}

	if data, ok := results["memory"]; ok {
		if mem, ok := data.(models.MemoryMetrics); ok {
			snapshot.Memory = &mem
		}
	}

	if data, ok := results["disk"]; ok {
		if disks, ok := data.([]models.DiskInfo); ok {
			snapshot.Disks = disks
		}
	} else {
		s.logger.Warn("Disk metrics not measured this cycle")
	}

	if data, ok := results["network"]; ok {
		if nics, ok := data.([]models.InterfaceInfo); ok {
			snapshot.Network = nics
		}
	} else {
		s.logger.Warn("Network metrics not measured this cycle")
	}

	if data, ok := results["uptime"]; ok {
		if uptime, ok := data.(uint64); ok {
			snapshot.Uptime = &uptime
		}
	}

	if data, ok := results["processes"]; ok {
		if procs, ok := data.([]models.ProcessInfo); ok {
			snapshot.Processes = procs
		}
	}

	if snapshot.CPU == nil {
		return nil, fmt.Errorf("cpu metrics unavailable, discarding snapshot")
	}
	if snapshot.Memory == nil {
		return nil, fmt.Errorf("memory metrics unavailable, discarding snapshot")
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	return snapshot, nil
}
