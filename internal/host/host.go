// Package host provides the single gateway through which every component
// touches the target host.
//
// The installer runs inside a privileged helper container; the host is
// reachable either by entering PID 1's namespaces (nsenter) or by chrooting
// into a bind-mounted host root. One Handle is built per run and every
// host-mutating operation flows through it — no component execs against the
// host on its own.
package host

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/config"
	ierr "github.com/Dstack-TEE/dstack-sysbox-installer/pkg/errors"
)

// Handle executes commands against the target host.
type Handle struct {
	mode   config.AccessMode
	root   string
	runner Runner
}

// New builds the Handle for the configured access mode. The mode is selected
// once and held fixed for the run.
func New(cfg *config.Config) (*Handle, error) {
	return NewWithRunner(cfg.AccessMode, cfg.HostRoot, execRunner{})
}

// NewWithRunner is New with an injectable command runner, for tests.
func NewWithRunner(mode config.AccessMode, root string, r Runner) (*Handle, error) {
	switch mode {
	case config.AccessNsenter, config.AccessChroot:
	default:
		return nil, fmt.Errorf("%w: %q", ierr.ErrInvalidAccessMode, mode)
	}
	if mode == config.AccessChroot && root == "" {
		return nil, fmt.Errorf("%w: chroot mode requires a host root", ierr.ErrInvalidAccessMode)
	}
	return &Handle{mode: mode, root: root, runner: r}, nil
}

// command wraps cmd for execution in the host's context.
func (h *Handle) command(cmd string, args []string) (string, []string) {
	switch h.mode {
	case config.AccessChroot:
		return "chroot", append([]string{h.root, cmd}, args...)
	default:
		// -t 1: the host's init owns the namespaces we want.
		return "nsenter", append([]string{"-t", "1", "-m", "-u", "-i", "-n", "-p", "--", cmd}, args...)
	}
}

// Run executes a mutating command on the host. A non-zero exit is an error;
// callers on the install pipeline treat it as fatal.
func (h *Handle) Run(cmd string, args ...string) ([]byte, error) {
	name, wrapped := h.command(cmd, args)
	out, code, err := h.runner.Run(name, wrapped...)
	if err != nil {
		return out, fmt.Errorf("%w: %s %s: %v", ierr.ErrHostCommand, cmd, strings.Join(args, " "), err)
	}
	if code != 0 {
		return out, fmt.Errorf("%w: %s exited with code %d", ierr.ErrHostCommand, cmd, code)
	}
	return out, nil
}

// Probe executes a probing command on the host. Failure of any kind means
// "false", never an error — existence checks must not abort the pipeline.
func (h *Handle) Probe(cmd string, args ...string) bool {
	name, wrapped := h.command(cmd, args)
	_, code, err := h.runner.Run(name, wrapped...)
	return err == nil && code == 0
}

// Output runs cmd on the host and returns its trimmed stdout.
func (h *Handle) Output(cmd string, args ...string) (string, error) {
	out, err := h.Run(cmd, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Try executes a best-effort command: a failure is recorded as a soft outcome
// and never stops the caller.
func (h *Handle) Try(cmd string, args ...string) Outcome {
	if _, err := h.Run(cmd, args...); err != nil {
		return Soft(err)
	}
	return Ok()
}

// HostPath maps a host-absolute path to a path visible inside the helper
// container, so direct file I/O and the command gateway observe the same tree.
// In chroot mode the host root is bind-mounted at a fixed location; in nsenter
// mode PID 1's root is reachable through procfs.
func (h *Handle) HostPath(p string) string {
	if h.mode == config.AccessChroot {
		return filepath.Join(h.root, p)
	}
	return filepath.Join("/proc/1/root", p)
}

// Mode reports the access mode the Handle was built with.
func (h *Handle) Mode() config.AccessMode {
	return h.mode
}
