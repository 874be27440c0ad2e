// Package binaries places the prebuilt sysbox binaries onto the host.
package binaries

import (
	"fmt"
	"path/filepath"

	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/host"
	"github.com/Dstack-TEE/dstack-sysbox-installer/pkg/fileutil"
)

// Daemon binaries staged under <stage_dir>/bin. The rsync here is a
// statically linked build: the host image does not ship one.
var staged = []string{
	"sysbox-mgr",
	"sysbox-fs",
	"sysbox-runc",
	"rsync",
}

// Optional host tools sysbox can use when present. Their absence degrades a
// feature, never the install. Candidates are alternate locations to symlink
// from when the tool is not on the host PATH.
var optionalTools = []struct {
	name       string
	candidates []string
	feature    string
}{
	{"sudo", []string{"/usr/sbin/sudo", "/opt/bin/sudo"}, "privilege escalation inside system containers"},
	{"iptables", []string{"/usr/sbin/iptables", "/sbin/iptables"}, "port mapping for inner containers"},
}

// Provision copies the staged binaries into the host bin directory and fixes
// up execution permissions; copying alone does not guarantee the mode bits.
// Optional dependency symlinks are best-effort and only created when missing.
func Provision(h *host.Handle, stageBinDir, hostBinDir string) error {
	for _, name := range staged {
		src := filepath.Join(stageBinDir, name)
		dst := h.HostPath(filepath.Join(hostBinDir, name))

		if err := fileutil.CopyFile(src, dst, 0755); err != nil {
			return fmt.Errorf("provision %s: %w", name, err)
		}
	}

	linkOptionalTools(h, hostBinDir)
	linkFusermount(h, hostBinDir)
	return nil
}

// linkOptionalTools symlinks sudo and iptables into the bin directory when
// they exist elsewhere on the host but not on the PATH.
func linkOptionalTools(h *host.Handle, hostBinDir string) {
	for _, tool := range optionalTools {
		if h.Probe("sh", "-c", "command -v "+tool.name) {
			continue
		}

		linked := false
		for _, candidate := range tool.candidates {
			if !fileutil.Exists(h.HostPath(candidate)) {
				continue
			}
			if out := h.Try("ln", "-sf", candidate, filepath.Join(hostBinDir, tool.name)); !out.Failed() {
				linked = true
			}
			break
		}
		if !linked {
			fmt.Printf("WARNING: %s not found on host; %s will be unavailable\n", tool.name, tool.feature)
		}
	}
}

// linkFusermount resolves the fusermount name mismatch: sysbox expects
// "fusermount" while some distributions only ship "fusermount3". FUSE mounts
// inside containers are optional, so neither name being present is a warning.
func linkFusermount(h *host.Handle, hostBinDir string) {
	if h.Probe("sh", "-c", "command -v fusermount") {
		return
	}

	path, err := h.Output("sh", "-c", "command -v fusermount3")
	if err != nil || path == "" {
		fmt.Println("WARNING: neither fusermount nor fusermount3 found; FUSE mounts in containers will be unavailable")
		return
	}

	if out := h.Try("ln", "-sf", path, filepath.Join(hostBinDir, "fusermount")); out.Failed() {
		fmt.Printf("WARNING: could not link fusermount to %s: %v\n", path, out.Err)
	}
}
