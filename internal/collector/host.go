// Host identity collector — reports the stable identity block attached to
// every snapshot. The identity never changes during a run, so it is
// resolved once and cached.
package collector

import (
	"context"
	"os"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/msle237-lees/homelab-agent/internal/models"
)

// HostCollector collects the host identity (server name, agent ID, OS,
// architecture). When no agent ID is configured, a fresh UUID is generated
// for the lifetime of the process.
type HostCollector struct {
	serverName string
	agentID    string

	once  sync.Once
	cache models.HostInfo
}

// NewHostCollector creates a host identity collector. serverName and
// agentID come from configuration; empty values fall back to the OS
// hostname and a generated UUID respectively.
func NewHostCollector(serverName, agentID string) *HostCollector {
	return &HostCollector{
		serverName: serverName,
		agentID:    agentID,
	}
}

// Name returns the collector identifier.
func (c *HostCollector) Name() string { return "host" }

// Collect resolves the host identity. Results are cached after the first call.
func (c *HostCollector) Collect(ctx context.Context) (interface{}, error) {
	c.once.Do(func() {
		name := c.serverName
		if name == "" {
			if hn, err := os.Hostname(); err == nil {
				name = hn
			} else {
				name = "unknown"
			}
		}
		id := c.agentID
		if id == "" {
			id = uuid.NewString()
		}
		c.cache = models.HostInfo{
			ServerName: name,
			AgentID:    id,
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
		}
	})
	return c.cache, nil
}

// IsAvailable returns true — host identity is available on all platforms.
func (c *HostCollector) IsAvailable() bool { return true }
