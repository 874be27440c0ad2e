package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.json")

	if err := AtomicWriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatalf("atomic write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "{}" {
		t.Fatalf("content = %q", data)
	}

	// No temporary file left behind.
	if Exists(path + ".tmp") {
		t.Fatalf("temporary file not cleaned up")
	}
}

func TestCopyFileSetsMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "sub", "dst")

	if err := os.WriteFile(src, []byte("binary"), 0600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := CopyFile(src, dst, 0755); err != nil {
		t.Fatalf("copy: %v", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat copy: %v", err)
	}
	if info.Mode().Perm() != 0755 {
		t.Fatalf("mode = %v, want 0755", info.Mode().Perm())
	}
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "copy")

	if err := os.MkdirAll(filepath.Join(src, "wireguard"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "wireguard", "wg0.conf"), []byte("conf"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Symlink("wg0.conf", filepath.Join(src, "wireguard", "alias")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	if err := CopyTree(src, dst); err != nil {
		t.Fatalf("copy tree: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dst, "wireguard", "wg0.conf"))
	if err != nil {
		t.Fatalf("copied file missing: %v", err)
	}
	if string(data) != "conf" {
		t.Fatalf("content = %q", data)
	}

	link, err := os.Readlink(filepath.Join(dst, "wireguard", "alias"))
	if err != nil {
		t.Fatalf("symlink not recreated: %v", err)
	}
	if link != "wg0.conf" {
		t.Fatalf("symlink target = %q", link)
	}
}
