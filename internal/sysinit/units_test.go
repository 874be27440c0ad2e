package sysinit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/config"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/host"
)

// recordingRunner records host commands and optionally fails is-active probes.
type recordingRunner struct {
	calls  []string
	active map[string]bool
}

func (r *recordingRunner) Run(name string, args ...string) ([]byte, int, error) {
	full := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, full)
	if strings.Contains(full, "is-active") {
		unit := args[len(args)-1]
		if !r.active[unit] {
			return nil, 3, nil
		}
	}
	return nil, 0, nil
}

func chrootHandle(t *testing.T, r host.Runner) (*host.Handle, string) {
	t.Helper()
	root := t.TempDir()
	h, err := host.NewWithRunner(config.AccessChroot, root, r)
	if err != nil {
		t.Fatalf("create handle: %v", err)
	}
	return h, root
}

func stageUnits(t *testing.T, units ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, unit := range units {
		if err := os.WriteFile(filepath.Join(dir, unit), []byte("[Unit]\nDescription=test\n"), 0644); err != nil {
			t.Fatalf("stage unit %s: %v", unit, err)
		}
	}
	return dir
}

func TestTargetUnitsWithoutOverlayUnit(t *testing.T) {
	stage := stageUnits(t, ManagerUnit, FsUnit)
	set := TargetUnits(stage, "/run/systemd/system")

	want := []string{ManagerUnit, FsUnit}
	if len(set.Units) != len(want) {
		t.Fatalf("units = %v, want %v", set.Units, want)
	}
	for i := range want {
		if set.Units[i] != want[i] {
			t.Fatalf("units = %v, want %v", set.Units, want)
		}
	}
}

func TestTargetUnitsWithOverlayUnit(t *testing.T) {
	stage := stageUnits(t, OverlayUnit, ManagerUnit, FsUnit)
	set := TargetUnits(stage, "/run/systemd/system")

	if set.Units[0] != OverlayUnit {
		t.Fatalf("overlay unit must start first, got %v", set.Units)
	}
}

func TestInstallCopiesVerifiesAndReloads(t *testing.T) {
	r := &recordingRunner{}
	h, root := chrootHandle(t, r)
	stage := stageUnits(t, ManagerUnit, FsUnit)
	set := TargetUnits(stage, "/run/systemd/system")

	if err := Install(h, stage, set); err != nil {
		t.Fatalf("install: %v", err)
	}

	for _, unit := range set.Units {
		if _, err := os.Stat(filepath.Join(root, "/run/systemd/system", unit)); err != nil {
			t.Fatalf("unit %s not installed: %v", unit, err)
		}
	}

	last := r.calls[len(r.calls)-1]
	if !strings.Contains(last, "systemctl daemon-reload") {
		t.Fatalf("catalog not reloaded, calls: %v", r.calls)
	}
}

func TestInstallFailsOnMissingStagedUnit(t *testing.T) {
	r := &recordingRunner{}
	h, _ := chrootHandle(t, r)
	stage := stageUnits(t, ManagerUnit) // FsUnit not staged

	set := UnitSet{Units: []string{ManagerUnit, FsUnit}, UnitDir: "/run/systemd/system"}
	if err := Install(h, stage, set); err == nil {
		t.Fatalf("expected error for missing staged unit")
	}
}

func TestRemoveStopsInReverseOrder(t *testing.T) {
	r := &recordingRunner{}
	h, _ := chrootHandle(t, r)
	set := UnitSet{Units: []string{ManagerUnit, FsUnit}, UnitDir: "/run/systemd/system"}

	if err := Remove(h, set); err != nil {
		t.Fatalf("remove: %v", err)
	}

	var stops []string
	for _, call := range r.calls {
		if strings.Contains(call, "systemctl stop") {
			stops = append(stops, call)
		}
	}
	if len(stops) != 2 || !strings.Contains(stops[0], FsUnit) || !strings.Contains(stops[1], ManagerUnit) {
		t.Fatalf("stop order wrong: %v", stops)
	}
}
