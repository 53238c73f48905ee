package encoder

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msle237-lees/homelab-agent/internal/models"
)

func sampleSnapshot() *models.MetricSnapshot {
	uptime := uint64(86400)
	return &models.MetricSnapshot{
		Timestamp:   time.Date(2026, 8, 25, 12, 0, 0, 123456789, time.UTC),
		MonotonicMS: 45000,
		Host: models.HostInfo{
			ServerName: "proxmox-01",
			AgentID:    "0b7e4c9a-1f3d-4f6a-9a2b-8c1d2e3f4a5b",
			OS:         "linux",
			Arch:       "amd64",
		},
		Status: models.AgentStatus,
		CPU: &models.CPUMetrics{
			AggregatePct: 42.5,
			PerCorePct:   []float64{40.0, 45.0},
		},
		Memory: &models.MemoryMetrics{
			TotalBytes:     16 << 30,
			UsedBytes:      8 << 30,
			AvailableBytes: 8 << 30,
			UsedPct:        50.0,
		},
		Disks: []models.DiskInfo{
			{Mount: "/", Fstype: "ext4", TotalBytes: 500 << 30, UsedBytes: 200 << 30, FreeBytes: 300 << 30},
		},
		Network: []models.InterfaceInfo{
			{Name: "eth0", RxBytesTotal: 1 << 40, TxBytesTotal: 1 << 38, RxBytesDelta: 2048, TxBytesDelta: 1024},
		},
		Uptime:    &uptime,
		Processes: []models.ProcessInfo{{PID: 1, Name: "systemd", CPU: 0.1, Memory: 0.2, Status: "sleeping"}},
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	original := sampleSnapshot()

	data, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.True(t, decoded.Timestamp.Equal(original.Timestamp), "timestamp mismatch")

	// Normalize timestamps before structural comparison; the wall-clock
	// instant was already compared with Equal above.
	original.Timestamp = time.Time{}
	decoded.Timestamp = time.Time{}
	assert.Equal(t, original, decoded)
}

func TestEncode_NullSectionsPreserved(t *testing.T) {
	s := sampleSnapshot()
	s.Disks = nil
	s.Network = nil
	s.Uptime = nil
	s.Processes = nil

	data, err := Encode(s)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))

	// Unmeasured sections must be present and explicitly null, never dropped.
	for _, key := range []string{"disks", "network", "uptime_seconds", "processes"} {
		require.Contains(t, raw, key)
		assert.Equal(t, "null", string(raw[key]), "field %s should encode as null", key)
	}

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Nil(t, decoded.Disks)
	assert.Nil(t, decoded.Network)
	assert.Nil(t, decoded.Uptime)
	assert.Nil(t, decoded.Processes)
}

func TestEncode_EmptyIsNotNull(t *testing.T) {
	s := sampleSnapshot()
	s.Disks = []models.DiskInfo{}

	data, err := Encode(s)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "[]", string(raw["disks"]), "measured-but-empty should encode as []")
}

func TestDecode_RejectsInvalidSnapshot(t *testing.T) {
	s := sampleSnapshot()
	s.CPU = nil

	data, err := json.Marshal(s)
	require.NoError(t, err)

	_, err = Decode(data)
	assert.Error(t, err, "snapshot without cpu must not decode")
}

func TestDecode_RejectsOutOfRangeCPU(t *testing.T) {
	s := sampleSnapshot()
	s.CPU.AggregatePct = 130.0

	data, err := json.Marshal(s)
	require.NoError(t, err)

	_, err = Decode(data)
	assert.Error(t, err)
}

func TestEncode_NilSnapshot(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)
}
