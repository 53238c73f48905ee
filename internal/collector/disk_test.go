package collector

import "testing"

func TestIsSystemMount(t *testing.T) {
	tests := []struct {
		mount string
		want  bool
	}{
		{"/System/Volumes/VM", true},
		{"/private/var/vm", true},
		{"/", false},
		{"/home", false},
		{"/mnt/data", false},
	}

	for _, tt := range tests {
		if got := isSystemMount(tt.mount); got != tt.want {
			t.Errorf("isSystemMount(%q) = %v, want %v", tt.mount, got, tt.want)
		}
	}
}

func TestPseudoFSTypes(t *testing.T) {
	for _, fs := range []string{"tmpfs", "proc", "overlay", "nfs4", "cgroup2"} {
		if !pseudoFSTypes[fs] {
			t.Errorf("expected %q to be treated as a pseudo/remote filesystem", fs)
		}
	}
	for _, fs := range []string{"ext4", "xfs", "btrfs", "apfs", "zfs"} {
		if pseudoFSTypes[fs] {
			t.Errorf("expected %q to be reported", fs)
		}
	}
}
