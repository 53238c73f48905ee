// Package models defines the metric data structures used throughout the agent.
// These structures are serialized to JSON for transmission to the collector.
package models

import (
	"fmt"
	"time"
)

// AgentStatus is the status string reported in every delivered snapshot.
const AgentStatus = "running"

// MetricSnapshot represents a single point-in-time collection of all system
// metrics. Optional sections are pointers (or nil slices) so that an
// unreadable subsystem is encoded as an explicit null rather than a
// fabricated zero value. CPU, Memory, and Timestamp are required: a snapshot
// missing any of them is invalid and its cycle is discarded.
type MetricSnapshot struct {
	Timestamp   time.Time       `json:"timestamp"`
	MonotonicMS int64           `json:"monotonic_ms"`
	Host        HostInfo        `json:"host"`
	Status      string          `json:"status"`
	CPU         *CPUMetrics     `json:"cpu"`
	Memory      *MemoryMetrics  `json:"memory"`
	Disks       []DiskInfo      `json:"disks"`
	Network     []InterfaceInfo `json:"network"`
	Uptime      *uint64         `json:"uptime_seconds"`
	Processes   []ProcessInfo   `json:"processes"`
}

// HostInfo identifies the machine a snapshot was taken on.
type HostInfo struct {
	ServerName string `json:"server_name"`
	AgentID    string `json:"agent_id"`
	OS         string `json:"os"`
	Arch       string `json:"arch"`
}

// CPUMetrics holds aggregate and per-core CPU utilization percentages.
type CPUMetrics struct {
	AggregatePct float64   `json:"aggregate_pct"`
	PerCorePct   []float64 `json:"per_core_pct"`
}

// MemoryMetrics holds virtual memory usage in bytes.
type MemoryMetrics struct {
	TotalBytes     uint64  `json:"total_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedPct        float64 `json:"used_pct"`
}

// DiskInfo represents usage for a single mounted volume.
type DiskInfo struct {
	Mount      string `json:"mount"`
	Fstype     string `json:"fstype,omitempty"`
	TotalBytes uint64 `json:"total_bytes"`
	UsedBytes  uint64 `json:"used_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`
}

// InterfaceInfo holds cumulative traffic counters for one network interface
// plus the deltas since the previous cycle. Deltas are zero on the first
// sample after start while the baseline is established.
type InterfaceInfo struct {
	Name         string `json:"name"`
	RxBytesTotal uint64 `json:"rx_bytes_total"`
	TxBytesTotal uint64 `json:"tx_bytes_total"`
	RxBytesDelta uint64 `json:"rx_bytes_delta"`
	TxBytesDelta uint64 `json:"tx_bytes_delta"`
}

// ProcessInfo represents a single process's resource usage.
type ProcessInfo struct {
	PID    int32   `json:"pid"`
	Name   string  `json:"name"`
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
	Status string  `json:"status"`
}

// Validate checks the snapshot invariants: required sections present,
// every populated numeric field non-negative, aggregate CPU within [0,100].
func (s *MetricSnapshot) Validate() error {
	if s.Timestamp.IsZero() {
		return fmt.Errorf("snapshot missing timestamp")
	}
	if s.CPU == nil {
		return fmt.Errorf("snapshot missing cpu metrics")
	}
	if s.Memory == nil {
		return fmt.Errorf("snapshot missing memory metrics")
	}
	if s.MonotonicMS < 0 {
		return fmt.Errorf("negative monotonic reading: %d", s.MonotonicMS)
	}
	if s.CPU.AggregatePct < 0 || s.CPU.AggregatePct > 100 {
		return fmt.Errorf("aggregate cpu %.2f%% outside [0,100]", s.CPU.AggregatePct)
	}
	for i, pct := range s.CPU.PerCorePct {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("core %d cpu %.2f%% outside [0,100]", i, pct)
		}
	}
	if s.Memory.UsedPct < 0 {
		return fmt.Errorf("negative memory percent: %.2f", s.Memory.UsedPct)
	}
	for _, p := range s.Processes {
		if p.CPU < 0 || p.Memory < 0 {
			return fmt.Errorf("process %d (%s) has negative usage", p.PID, p.Name)
		}
	}
	return nil
}

// ClampPct bounds a percentage reading to [0,100]. Some platforms report
// slightly negative or >100 values during the first bracketed CPU read.
func ClampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
