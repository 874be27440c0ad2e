package detect

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/config"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/host"
)

// fakeRunner scripts systemctl probe results against a chroot-mode handle.
type fakeRunner struct {
	catalog map[string]bool // unit -> known to systemctl
	active  map[string]bool // unit -> is-active
}

func (f *fakeRunner) Run(name string, args ...string) ([]byte, int, error) {
	full := strings.Join(append([]string{name}, args...), " ")
	switch {
	case strings.Contains(full, "systemctl cat "):
		unit := args[len(args)-1]
		if f.catalog[unit] {
			return nil, 0, nil
		}
		return nil, 1, nil
	case strings.Contains(full, "systemctl is-active"):
		unit := args[len(args)-1]
		if f.active[unit] {
			return nil, 0, nil
		}
		return nil, 3, nil
	}
	return nil, 0, nil
}

func newHost(t *testing.T, r host.Runner) (*host.Handle, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.AccessMode = config.AccessChroot
	cfg.HostRoot = t.TempDir()

	h, err := host.NewWithRunner(cfg.AccessMode, cfg.HostRoot, r)
	if err != nil {
		t.Fatalf("create handle: %v", err)
	}
	return h, cfg
}

func TestDetectAbsent(t *testing.T) {
	h, cfg := newHost(t, &fakeRunner{})
	if got := Detect(h, cfg); got != Absent {
		t.Fatalf("state = %v, want absent", got)
	}
}

func TestDetectStoppedFromCatalog(t *testing.T) {
	r := &fakeRunner{catalog: map[string]bool{"sysbox-mgr.service": true}}
	h, cfg := newHost(t, r)

	if got := Detect(h, cfg); got != InstalledStopped {
		t.Fatalf("state = %v, want installed (stopped)", got)
	}
}

func TestDetectStoppedFromUnitFile(t *testing.T) {
	h, cfg := newHost(t, &fakeRunner{})

	// Unit file present in the runtime unit directory, nothing in the catalog.
	unitPath := filepath.Join(cfg.HostRoot, cfg.RuntimeUnitDir, "sysbox-fs.service")
	if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(unitPath, []byte("[Unit]\n"), 0644); err != nil {
		t.Fatalf("write unit: %v", err)
	}

	if got := Detect(h, cfg); got != InstalledStopped {
		t.Fatalf("state = %v, want installed (stopped)", got)
	}
}

func TestDetectRunning(t *testing.T) {
	r := &fakeRunner{
		catalog: map[string]bool{"sysbox-mgr.service": true, "sysbox-fs.service": true},
		active:  map[string]bool{"sysbox-mgr.service": true},
	}
	h, cfg := newHost(t, r)

	if got := Detect(h, cfg); got != InstalledRunning {
		t.Fatalf("state = %v, want installed (running)", got)
	}
}

func TestStateStrings(t *testing.T) {
	if Absent.String() != "absent" {
		t.Fatalf("absent string = %q", Absent.String())
	}
	if InstalledRunning.String() != "installed (running)" {
		t.Fatalf("running string = %q", InstalledRunning.String())
	}
}
