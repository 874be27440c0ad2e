// Package overlay composes the writable configuration layer over the host's
// read-only /etc.
//
// Two layers are involved: a general overlay covering the whole target, and a
// nested always-persistent overlay for the accounts subtree mounted after it.
// Nesting order matters: the accounts layer must go on top so its writes land
// in persistent storage regardless of the general layer's policy.
package overlay

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/config"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/host"
	ierr "github.com/Dstack-TEE/dstack-sysbox-installer/pkg/errors"
	"github.com/Dstack-TEE/dstack-sysbox-installer/pkg/fileutil"
)

// Layer describes one overlay mount. The mount point must exist before
// mounting; its pre-overlay content becomes the read-only lower layer.
type Layer struct {
	Lower      string
	Upper      string
	Work       string
	MountPoint string
}

// Options renders the overlay mount option string.
// Format: lowerdir=path,upperdir=path,workdir=path.
func (l Layer) Options() string {
	return fmt.Sprintf("lowerdir=%s,upperdir=%s,workdir=%s", l.Lower, l.Upper, l.Work)
}

// PreservedConfig names a subtree owned by another subsystem whose prior
// upper-layer content must be carried into the new upper layer before the old
// layers are torn down. A missing source is skipped, not an error.
type PreservedConfig struct {
	Name     string
	Subtree  string // host path under the overlay target
	OldUpper string // prior per-subsystem upper layer in the persistent store
}

// PreservedSet returns the subtrees earlier installer revisions mounted as
// per-subsystem overlays. Their upper layers live under the persistent store.
func PreservedSet(cfg *config.Config) []PreservedConfig {
	return []PreservedConfig{
		{Name: "wireguard", Subtree: "/etc/wireguard", OldUpper: cfg.PersistDir + "/wireguard-etc/upper"},
		{Name: "docker", Subtree: "/etc/docker", OldUpper: cfg.PersistDir + "/docker-etc/upper"},
	}
}

// Composer builds the configuration overlays through one host handle.
type Composer struct {
	h   *host.Handle
	cfg *config.Config
}

// New creates a Composer.
func New(h *host.Handle, cfg *config.Config) *Composer {
	return &Composer{h: h, cfg: cfg}
}

// Compose mounts the general /etc overlay and the nested accounts overlay.
// Every step is independently idempotent; an overlay already covering the
// target short-circuits the whole operation.
func (c *Composer) Compose() error {
	target := c.cfg.EtcTarget

	// Never re-mount over a live overlay.
	if c.Mounted(target) {
		fmt.Printf("%s is already covered by an overlay, leaving it in place\n", target)
		return nil
	}

	general := Layer{
		Lower:      target,
		Upper:      c.cfg.UpperDir(),
		Work:       c.cfg.WorkDir(),
		MountPoint: target,
	}

	for _, dir := range []string{general.Upper, general.Work} {
		if err := fileutil.EnsureDir(c.h.HostPath(dir), 0755); err != nil {
			return err
		}
	}

	c.preserve(general.Upper)

	// Per-subsystem overlays under the target must go away before the general
	// mount, or it would shadow them unpredictably. The subtree may not be
	// mounted at all, so failures are ignored.
	for _, p := range PreservedSet(c.cfg) {
		c.h.Try("umount", "-l", p.Subtree)
	}

	if err := c.mount(general); err != nil {
		return fmt.Errorf("%w: %v", ierr.ErrOverlayMount, err)
	}

	return c.composeAccounts()
}

// preserve copies prior per-subsystem upper content into the new upper layer
// before anything is unmounted. Best-effort by contract.
func (c *Composer) preserve(newUpper string) {
	for _, p := range PreservedSet(c.cfg) {
		src := c.h.HostPath(p.OldUpper)
		if !fileutil.Exists(src) {
			continue
		}

		rel := strings.TrimPrefix(p.Subtree, c.cfg.EtcTarget+"/")
		dst := c.h.HostPath(filepath.Join(newUpper, rel))
		if err := fileutil.CopyTree(src, dst); err != nil {
			fmt.Printf("WARNING: could not preserve %s config: %v\n", p.Name, err)
		}
	}
}

// composeAccounts mounts the always-persistent accounts overlay on top of the
// (now overlay-covered) subtree, so account data survives even when the
// general layer is volatile. The lower layer is the subtree itself, keeping
// any content the preservation step merged there.
func (c *Composer) composeAccounts() error {
	accounts := c.cfg.AccountsDir
	if accounts == "" {
		return nil
	}

	layer := Layer{
		Lower:      accounts,
		Upper:      c.cfg.AccountsUpperDir(),
		Work:       c.cfg.AccountsWorkDir(),
		MountPoint: accounts,
	}

	for _, dir := range []string{layer.Upper, layer.Work} {
		if err := fileutil.EnsureDir(c.h.HostPath(dir), 0755); err != nil {
			return err
		}
	}
	// The general overlay made the target writable, so the mount point can be
	// created even on a read-only host /etc.
	if err := fileutil.EnsureDir(c.h.HostPath(accounts), 0755); err != nil {
		return err
	}

	if err := c.mount(layer); err != nil {
		return fmt.Errorf("%w: accounts subtree: %v", ierr.ErrOverlayMount, err)
	}
	return nil
}

// mount performs one atomic overlay mount through the host handle.
func (c *Composer) mount(l Layer) error {
	_, err := c.h.Run("mount", "-t", "overlay", "overlay", "-o", l.Options(), l.MountPoint)
	return err
}

// Mounted reports whether an overlay filesystem already covers target on the
// host. The live mount table is authoritative; a statfs on the target is the
// fallback when it cannot be read.
func (c *Composer) Mounted(target string) bool {
	if out, err := c.h.Output("cat", "/proc/mounts"); err == nil {
		return hasOverlayMount(out, target)
	}
	return isOverlayFS(c.h.HostPath(target))
}

// Teardown unmounts the accounts overlay and then the general overlay, in
// reverse of mount order. Used by uninstall; both unmounts are best-effort
// since either may not be mounted.
func Teardown(h *host.Handle, cfg *config.Config) {
	if cfg.AccountsDir != "" {
		h.Try("umount", "-l", cfg.AccountsDir)
	}
	h.Try("umount", "-l", cfg.EtcTarget)
}

// hasOverlayMount scans /proc/mounts content for an overlay entry at target.
func hasOverlayMount(mounts, target string) bool {
	for _, line := range strings.Split(mounts, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		if fields[1] == target && fields[2] == "overlay" {
			return true
		}
	}
	return false
}
