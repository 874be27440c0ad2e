// Package sysinit provisions and sequences the sysbox service units.
//
// Units are installed into the runtime-only unit directory, never the
// persistent one: on this host class /etc/systemd/system may be read-only,
// so the units are transient and do not survive a reboot. Enabling them for
// boot is deliberately not attempted.
package sysinit

import (
	"fmt"
	"path/filepath"

	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/host"
	ierr "github.com/Dstack-TEE/dstack-sysbox-installer/pkg/errors"
	"github.com/Dstack-TEE/dstack-sysbox-installer/pkg/fileutil"
)

// Target unit names, in start order. The overlay unit is optional: it exists
// only when the volatile overlay policy needs re-activation after reboot.
const (
	OverlayUnit = "dstack-etc-overlay.service"
	ManagerUnit = "sysbox-mgr.service"
	FsUnit      = "sysbox-fs.service"
)

// PersistentUnitDir is where boot-persistent units would live. It is probed
// during detection but never written: it may be read-only.
const PersistentUnitDir = "/etc/systemd/system"

// UnitSet is an ordered list of units sharing one runtime unit directory.
// Order is start order; removal walks it in reverse.
type UnitSet struct {
	Units   []string
	UnitDir string
}

// TargetUnits returns the unit set for a sysbox install. The overlay
// activation unit is only included when staged.
func TargetUnits(stageUnitsDir, runtimeUnitDir string) UnitSet {
	units := []string{ManagerUnit, FsUnit}
	if fileutil.Exists(filepath.Join(stageUnitsDir, OverlayUnit)) {
		units = append([]string{OverlayUnit}, units...)
	}
	return UnitSet{Units: units, UnitDir: runtimeUnitDir}
}

// Install copies each staged unit definition into the runtime unit directory
// and reloads the unit catalog. Every copy is re-verified by existence check:
// under restrictive mount options a copy can fail without an error surfacing.
func Install(h *host.Handle, stageUnitsDir string, set UnitSet) error {
	for _, unit := range set.Units {
		src := filepath.Join(stageUnitsDir, unit)
		dst := h.HostPath(filepath.Join(set.UnitDir, unit))

		if err := fileutil.CopyFile(src, dst, 0644); err != nil {
			return fmt.Errorf("install unit %s: %w", unit, err)
		}
		if !fileutil.Exists(dst) {
			return fmt.Errorf("%w: %s not present after copy", ierr.ErrUnitMissing, unit)
		}
	}

	if _, err := h.Run("systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("reload unit catalog: %w", err)
	}
	return nil
}

// Remove stops and deletes the units in reverse start order, then reloads the
// catalog. Stops are best-effort: a unit may never have started.
func Remove(h *host.Handle, set UnitSet) error {
	for i := len(set.Units) - 1; i >= 0; i-- {
		unit := set.Units[i]
		h.Try("systemctl", "stop", unit)
		h.Try("rm", "-f", filepath.Join(set.UnitDir, unit))
	}

	if _, err := h.Run("systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("reload unit catalog: %w", err)
	}
	return nil
}

// IsActive probes unit liveness.
func IsActive(h *host.Handle, unit string) bool {
	return h.Probe("systemctl", "is-active", "--quiet", unit)
}

// InCatalog probes whether the init system knows the unit.
func InCatalog(h *host.Handle, unit string) bool {
	return h.Probe("systemctl", "cat", unit)
}
