// CPU usage collector — gathers aggregate and per-core CPU utilization.
// Uses gopsutil for cross-platform CPU metrics.
package collector

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/msle237-lees/homelab-agent/internal/models"
)

// cpuBracket is the two-point measurement window for the aggregate reading.
// It must stay well under the sampling interval so a cycle never blocks on
// its own measurement.
const cpuBracket = 300 * time.Millisecond

// CPUCollector collects CPU utilization metrics.
type CPUCollector struct{}

// NewCPUCollector creates a new CPU collector.
func NewCPUCollector() *CPUCollector {
	return &CPUCollector{}
}

// Name returns the collector identifier.
func (c *CPUCollector) Name() string { return "cpu" }

// Collect gathers CPU usage data. The aggregate reading brackets a short
// interval to compute a rate; per-core readings are deltas since the last
// call and may be empty on the very first sample.
func (c *CPUCollector) Collect(ctx context.Context) (interface{}, error) {
	overall, err := cpu.PercentWithContext(ctx, cpuBracket, false)
	if err != nil {
		return nil, err
	}

	cores, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		// Non-fatal: aggregate alone is still a valid CPU reading.
		cores = nil
	}

	result := models.CPUMetrics{}
	if len(overall) > 0 {
		result.AggregatePct = models.ClampPct(overall[0])
	}
	for _, pct := range cores {
		result.PerCorePct = append(result.PerCorePct, models.ClampPct(pct))
	}

	return result, nil
}

// IsAvailable returns true — CPU metrics are available on all platforms.
func (c *CPUCollector) IsAvailable() bool { return true }
