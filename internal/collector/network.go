// Network I/O collector — gathers per-interface cumulative traffic counters
// and computes deltas against the previous cycle's readings.
// Uses gopsutil for cross-platform network metrics.
package collector

import (
	"context"
	"sort"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/msle237-lees/homelab-agent/internal/models"
)

// ifaceCounters is one interface's last-seen cumulative readings.
type ifaceCounters struct {
	rx uint64
	tx uint64
}

// NetworkCollector collects per-interface network traffic counters.
// It exclusively owns the last-seen counter baseline, which is overwritten
// only after a successful read; the first sample after start reports zero
// deltas while the baseline is established.
type NetworkCollector struct {
	last        map[string]ifaceCounters
	initialized bool
}

// NewNetworkCollector creates a new network collector.
func NewNetworkCollector() *NetworkCollector {
	return &NetworkCollector{
		last: make(map[string]ifaceCounters),
	}
}

// Name returns the collector identifier.
func (c *NetworkCollector) Name() string { return "network" }

// Collect gathers cumulative RX/TX byte counters for every interface plus
// deltas since the previous collection. Counter resets (interface bounced,
// counters wrapped) produce a zero delta rather than an underflowed one.
func (c *NetworkCollector) Collect(ctx context.Context) (interface{}, error) {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}

	next := make(map[string]ifaceCounters, len(counters))
	results := make([]models.InterfaceInfo, 0, len(counters))
	for _, nic := range counters {
		info := models.InterfaceInfo{
			Name:         nic.Name,
			RxBytesTotal: nic.BytesRecv,
			TxBytesTotal: nic.BytesSent,
		}

		if c.initialized {
			if prev, ok := c.last[nic.Name]; ok {
				if nic.BytesRecv >= prev.rx {
					info.RxBytesDelta = nic.BytesRecv - prev.rx
				}
				if nic.BytesSent >= prev.tx {
					info.TxBytesDelta = nic.BytesSent - prev.tx
				}
			}
		}

		next[nic.Name] = ifaceCounters{rx: nic.BytesRecv, tx: nic.BytesSent}
		results = append(results, info)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})

	// Baseline is replaced only after the read fully succeeded.
	c.last = next
	c.initialized = true

	return results, nil
}

// IsAvailable returns true — network metrics are available on all platforms.
func (c *NetworkCollector) IsAvailable() bool { return true }
