package sysinit

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/config"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/host"
	"github.com/Dstack-TEE/dstack-sysbox-installer/pkg/fileutil"
)

// ManagerSocket is the manager's API socket. Its appearance is the readiness
// signal the filesystem service depends on: sysbox-fs attaches to the manager
// over it.
const ManagerSocket = "/run/sysbox/sysmgr.sock"

// Sequencer starts units strictly in declared order, waiting for the manager
// to become reachable before its dependents start.
type Sequencer struct {
	h       *host.Handle
	settle  time.Duration
	timeout time.Duration

	// injection points for tests
	sleep func(time.Duration)
	await func(path string, timeout time.Duration) bool
}

// NewSequencer creates a Sequencer with the configured settle delay and
// readiness timeout.
func NewSequencer(h *host.Handle, cfg *config.Config) *Sequencer {
	return &Sequencer{
		h:       h,
		settle:  cfg.SettleDelay,
		timeout: cfg.StartTimeout,
		sleep:   time.Sleep,
		await:   awaitPath,
	}
}

// StartAll starts every unit in order and then probes liveness. Units not
// reporting active produce remediation warnings, not a failure: they may
// still converge after the installer exits, and without a real health check
// "still converging" and "failed" are indistinguishable here.
//
// The returned slice names the units that were not active at probe time.
func (s *Sequencer) StartAll(set UnitSet) ([]string, error) {
	for _, unit := range set.Units {
		fmt.Printf("Starting %s\n", unit)
		if _, err := s.h.Run("systemctl", "start", unit); err != nil {
			return nil, fmt.Errorf("start %s: %w", unit, err)
		}

		if unit == ManagerUnit {
			// Bounded wait on the manager socket; fall back to the fixed
			// settle delay when the watch cannot deliver an answer.
			if !s.await(s.h.HostPath(ManagerSocket), s.timeout) {
				s.sleep(s.settle)
			}
			continue
		}
		s.sleep(s.settle)
	}

	var inactive []string
	for _, unit := range set.Units {
		if !IsActive(s.h, unit) {
			inactive = append(inactive, unit)
		}
	}

	for _, unit := range inactive {
		fmt.Printf("WARNING: %s is not active yet; check with:\n", unit)
		fmt.Printf("  systemctl status %s\n", unit)
		fmt.Printf("  journalctl -u %s\n", unit)
	}
	return inactive, nil
}

// awaitPath waits for path to appear, bounded by timeout. Returns false when
// the answer could not be determined (no watchable parent, watcher failure),
// in which case the caller falls back to a settle delay.
func awaitPath(path string, timeout time.Duration) bool {
	if fileutil.Exists(path) {
		return true
	}

	dir := filepath.Dir(path)
	if !fileutil.Exists(dir) {
		return false
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return false
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return false
	}

	// The file may have appeared between the first check and the watch.
	if fileutil.Exists(path) {
		return true
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case ev := <-w.Events:
			if ev.Name == path && ev.Has(fsnotify.Create) {
				return true
			}
		case <-w.Errors:
			return false
		case <-deadline.C:
			return false
		}
	}
}
