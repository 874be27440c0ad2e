package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	ierr "github.com/Dstack-TEE/dstack-sysbox-installer/pkg/errors"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default profile invalid: %v", err)
	}
	if cfg.AccessMode != AccessNsenter {
		t.Fatalf("default access mode = %q", cfg.AccessMode)
	}
	if cfg.Overlay != OverlayPersistent {
		t.Fatalf("default overlay policy = %q", cfg.Overlay)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	profile := `
access_mode: chroot
host_root: /mnt/host
overlay_policy: volatile
settle_delay: 1s
`
	if err := os.WriteFile(path, []byte(profile), 0644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}

	if cfg.AccessMode != AccessChroot || cfg.HostRoot != "/mnt/host" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.SettleDelay != time.Second {
		t.Fatalf("settle delay = %v", cfg.SettleDelay)
	}
	// Keys absent from the file keep defaults.
	if cfg.BinDir != "/usr/bin" || cfg.PersistDir != "/dstack/persistent" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("access_mode: ssh\n"), 0644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	if _, err := Load(path); !errors.Is(err, ierr.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestOverlayDirsFollowPolicy(t *testing.T) {
	cfg := Default()

	if got := cfg.UpperDir(); got != "/dstack/persistent/etc-overlay/upper" {
		t.Fatalf("persistent upper = %q", got)
	}

	cfg.Overlay = OverlayVolatile
	if got := cfg.UpperDir(); got != "/run/dstack/etc-overlay/upper" {
		t.Fatalf("volatile upper = %q", got)
	}

	// The accounts layer ignores the volatile policy.
	if got := cfg.AccountsUpperDir(); got != "/dstack/persistent/accounts-overlay/upper" {
		t.Fatalf("accounts upper = %q", got)
	}
}
