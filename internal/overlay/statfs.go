//go:build linux
// +build linux

package overlay

import "golang.org/x/sys/unix"

// isOverlayFS reports whether the filesystem at path is an overlay.
// path is container-visible (already mapped through HostPath).
func isOverlayFS(path string) bool {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return false
	}
	return int64(st.Type) == unix.OVERLAYFS_SUPER_MAGIC
}
