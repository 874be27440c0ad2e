//go:build !linux
// +build !linux

package overlay

// isOverlayFS always reports false on non-Linux platforms; overlay
// filesystems are Linux-only.
func isOverlayFS(path string) bool {
	return false
}
