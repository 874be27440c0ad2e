// Package detect determines whether sysbox is already installed on the host.
//
// The result is recomputed on every invocation: the installer is a one-shot
// process and caches nothing. A non-Absent state short-circuits the whole
// pipeline — re-running the installer is a deliberate no-op, not an upgrade
// path.
package detect

import (
	"path/filepath"

	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/config"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/host"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/sysinit"
	"github.com/Dstack-TEE/dstack-sysbox-installer/pkg/fileutil"
)

// State is the observed installation state.
type State int

const (
	// Absent means no trace of the target daemons exists.
	Absent State = iota
	// InstalledStopped means unit definitions exist but the manager is not running.
	InstalledStopped
	// InstalledRunning means the manager unit reports active.
	InstalledRunning
)

func (s State) String() string {
	switch s {
	case InstalledStopped:
		return "installed (stopped)"
	case InstalledRunning:
		return "installed (running)"
	default:
		return "absent"
	}
}

// Detect probes the host for an existing installation. Checks, in order: the
// init system's unit catalog, then unit definition files in the runtime and
// persistent unit directories. Any match means at least InstalledStopped; a
// live manager upgrades it to InstalledRunning.
func Detect(h *host.Handle, cfg *config.Config) State {
	units := []string{sysinit.ManagerUnit, sysinit.FsUnit}
	dirs := []string{cfg.RuntimeUnitDir, sysinit.PersistentUnitDir}

	found := false
	for _, unit := range units {
		if sysinit.InCatalog(h, unit) {
			found = true
			break
		}
		for _, dir := range dirs {
			if fileutil.Exists(h.HostPath(filepath.Join(dir, unit))) {
				found = true
				break
			}
		}
		if found {
			break
		}
	}

	if !found {
		return Absent
	}
	if sysinit.IsActive(h, sysinit.ManagerUnit) {
		return InstalledRunning
	}
	return InstalledStopped
}
