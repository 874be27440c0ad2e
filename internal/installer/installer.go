// Package installer sequences the install pipeline.
//
// Control flow is strictly linear: attest, detect, provision binaries,
// compose the config overlay, register the runtime, install units, start
// units, report. Each step gates the next; an unrecoverable failure aborts
// the rest. There is no cross-step rollback beyond the daemon-config backup —
// a failure after the overlay is mounted leaves the overlay for manual
// cleanup, which the error text says so.
package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/attest"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/binaries"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/config"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/detect"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/dockercfg"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/host"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/overlay"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/sysinit"
)

// Installer runs the pipeline against one host through one handle.
type Installer struct {
	h   *host.Handle
	cfg *config.Config
}

// New builds an Installer for the configured host access mode.
func New(cfg *config.Config) (*Installer, error) {
	h, err := host.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Installer{h: h, cfg: cfg}, nil
}

// NewWithHandle is New with an injected handle, for tests.
func NewWithHandle(h *host.Handle, cfg *config.Config) *Installer {
	return &Installer{h: h, cfg: cfg}
}

// Run executes the full install pipeline. Returning nil means success or the
// already-installed no-op; both exit 0.
func (in *Installer) Run(ctx context.Context) error {
	// Integrity first: nothing may touch the host before the staged
	// artifacts are known to be the pinned build.
	if err := attest.Verify(in.cfg.StageDir); err != nil {
		return err
	}

	if state := detect.Detect(in.h, in.cfg); state != detect.Absent {
		fmt.Printf("sysbox is %s on this host; nothing to do\n", state)
		fmt.Println("To remove the existing installation run: sysbox-installer uninstall")
		return in.Report(ctx, os.Stdout, "table")
	}

	fmt.Println("Provisioning sysbox binaries")
	if err := binaries.Provision(in.h, filepath.Join(in.cfg.StageDir, "bin"), in.cfg.BinDir); err != nil {
		return err
	}

	fmt.Printf("Composing config overlay over %s (%s policy)\n", in.cfg.EtcTarget, in.cfg.Overlay)
	if err := overlay.New(in.h, in.cfg).Compose(); err != nil {
		return err
	}

	fmt.Println("Registering sysbox-runc with docker")
	if err := dockercfg.RegisterRuntime(in.h, in.cfg); err != nil {
		return err
	}

	stageUnits := filepath.Join(in.cfg.StageDir, "units")
	set := sysinit.TargetUnits(stageUnits, in.cfg.RuntimeUnitDir)

	fmt.Printf("Installing transient units into %s\n", in.cfg.RuntimeUnitDir)
	if err := sysinit.Install(in.h, stageUnits, set); err != nil {
		return err
	}
	fmt.Println("NOTE: units are transient and will not survive a reboot")

	if _, err := sysinit.NewSequencer(in.h, in.cfg).StartAll(set); err != nil {
		return err
	}

	return in.Report(ctx, os.Stdout, "table")
}

// Uninstall reverses the service and overlay provisioning. Binaries and the
// persistent store are left in place and reported as manual follow-ups.
func (in *Installer) Uninstall() error {
	set := sysinit.UnitSet{
		Units:   []string{sysinit.OverlayUnit, sysinit.ManagerUnit, sysinit.FsUnit},
		UnitDir: in.cfg.RuntimeUnitDir,
	}
	if err := sysinit.Remove(in.h, set); err != nil {
		return err
	}

	overlay.Teardown(in.h, in.cfg)

	fmt.Println("Units removed and overlays unmounted.")
	fmt.Println("Manual follow-ups, if desired:")
	fmt.Printf("  remove binaries from %s (sysbox-mgr, sysbox-fs, sysbox-runc, rsync)\n", in.cfg.BinDir)
	fmt.Printf("  remove overlay layers under %s\n", in.cfg.PersistDir)
	fmt.Printf("  drop the %s entry from %s (a %s copy exists)\n",
		dockercfg.RuntimeName, in.cfg.DockerConfig, dockercfg.BackupSuffix)
	return nil
}
