// Disk usage collector — gathers per-mount disk usage information.
// Uses gopsutil for cross-platform disk metrics.
package collector

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"

	"github.com/msle237-lees/homelab-agent/internal/models"
)

// pseudoFSTypes contains filesystem types excluded from disk metrics:
// virtual/system filesystems and network/remote filesystems that don't
// represent local storage devices.
var pseudoFSTypes = map[string]bool{
	// Virtual / system filesystems
	"devfs":         true,
	"autofs":        true,
	"nullfs":        true,
	"tmpfs":         true,
	"sysfs":         true,
	"proc":          true,
	"procfs":        true,
	"devtmpfs":      true,
	"cgroup":        true,
	"cgroup2":       true,
	"overlay":       true,
	"squashfs":      true,
	"fuse.snapfuse": true,
	"nsfs":          true,
	"pstore":        true,
	"debugfs":       true,
	"tracefs":       true,
	"securityfs":    true,
	"configfs":      true,
	"fusectl":       true,
	"mqueue":        true,
	"hugetlbfs":     true,
	"binfmt_misc":   true,
	"efivarfs":      true,
	"bpf":           true,
	"ramfs":         true,

	// Network / remote filesystems
	"nfs":           true,
	"nfs4":          true,
	"cifs":          true,
	"smbfs":         true,
	"fuse.sshfs":    true,
	"fuse.rclone":   true,
	"9p":            true,
	"afs":           true,
	"ncpfs":         true,
	"glusterfs":     true,
	"lustre":        true,
	"ceph":          true,
	"fuse.ceph":     true,
	"gpfs":          true,
	"pvfs2":         true,
	"fuse.s3fs":     true,
	"fuse.gcsfuse":  true,
	"fuse.blobfuse": true,
	"davfs2":        true,
}

// isSystemMount returns true for mount points that are macOS system volumes
// or other OS-internal paths that shouldn't be reported.
func isSystemMount(mount string) bool {
	systemPrefixes := []string{
		"/System/Volumes/",
		"/private/var/vm",
	}
	for _, prefix := range systemPrefixes {
		if strings.HasPrefix(mount, prefix) {
			return true
		}
	}
	return false
}

// DiskCollector collects disk usage metrics per mount point.
type DiskCollector struct {
	logger *zap.Logger
}

// NewDiskCollector creates a new disk collector.
func NewDiskCollector(logger *zap.Logger) *DiskCollector {
	return &DiskCollector{logger: logger}
}

// Name returns the collector identifier.
func (c *DiskCollector) Name() string { return "disk" }

// Collect gathers disk usage data for all real mounted volumes.
// A single inaccessible partition (e.g. unmounted mid-run) is skipped;
// it never fails the whole collection.
func (c *DiskCollector) Collect(ctx context.Context) (interface{}, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}

	results := make([]models.DiskInfo, 0, len(partitions))
	seen := make(map[string]bool)
	for _, p := range partitions {
		if pseudoFSTypes[p.Fstype] || isSystemMount(p.Mountpoint) || seen[p.Mountpoint] {
			continue
		}

		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			c.logger.Debug("Skipping inaccessible partition",
				zap.String("mount", p.Mountpoint),
				zap.Error(err))
			continue
		}
		// Some virtual mounts report 0 total bytes
		if usage.Total == 0 {
			continue
		}

		seen[p.Mountpoint] = true
		results = append(results, models.DiskInfo{
			Mount:      p.Mountpoint,
			Fstype:     p.Fstype,
			TotalBytes: usage.Total,
			UsedBytes:  usage.Used,
			FreeBytes:  usage.Free,
		})
	}

	return results, nil
}

// IsAvailable returns true — disk metrics are available on all platforms.
func (c *DiskCollector) IsAvailable() bool { return true }
