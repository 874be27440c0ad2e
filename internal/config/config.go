// Package config loads the install profile.
//
// The profile describes the one host layout this installer targets: where the
// host root is reachable, which paths are writable, and which overlay policy
// governs the /etc layer. Values come from a YAML file with environment and
// flag overrides; everything has a default that matches a stock dstack host.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ierr "github.com/Dstack-TEE/dstack-sysbox-installer/pkg/errors"
)

// AccessMode selects how host commands are executed.
type AccessMode string

const (
	// AccessNsenter enters the host's mount/UTS/IPC/net/PID namespaces via PID 1.
	AccessNsenter AccessMode = "nsenter"
	// AccessChroot chroots into the bind-mounted host root.
	AccessChroot AccessMode = "chroot"
)

// OverlayPolicy selects where the /etc overlay's upper layer lives.
type OverlayPolicy string

const (
	// OverlayPersistent backs the upper layer with the persistent store.
	OverlayPersistent OverlayPolicy = "persistent"
	// OverlayVolatile backs the upper layer with /run; contents reset on reboot
	// and survive only through explicit config preservation.
	OverlayVolatile OverlayPolicy = "volatile"
)

// Environment variable consulted when --config is not given.
const ProfileEnvVar = "SYSBOX_INSTALLER_CONFIG"

// Config is the install profile shared by every pipeline step.
type Config struct {
	AccessMode AccessMode `yaml:"access_mode"`
	HostRoot   string     `yaml:"host_root"` // chroot root / host bind-mount path

	PersistDir string `yaml:"persist_dir"` // writable, survives reboot
	BinDir     string `yaml:"bin_dir"`     // writable, on the host PATH
	StageDir   string `yaml:"stage_dir"`   // staged artifacts inside the helper image

	EtcTarget   string        `yaml:"etc_target"`
	AccountsDir string        `yaml:"accounts_dir"` // always-persistent subtree
	Overlay     OverlayPolicy `yaml:"overlay_policy"`

	RuntimeUnitDir string `yaml:"runtime_unit_dir"`
	DockerConfig   string `yaml:"docker_config"`

	SettleDelay  time.Duration `yaml:"settle_delay"`
	StartTimeout time.Duration `yaml:"start_timeout"`
}

// Default returns the profile for a stock dstack host.
func Default() *Config {
	return &Config{
		AccessMode:     AccessNsenter,
		HostRoot:       "/host",
		PersistDir:     "/dstack/persistent",
		BinDir:         "/usr/bin",
		StageDir:       "/sysbox",
		EtcTarget:      "/etc",
		AccountsDir:    "/etc/accounts",
		Overlay:        OverlayPersistent,
		RuntimeUnitDir: "/run/systemd/system",
		DockerConfig:   "/etc/docker/daemon.json",
		SettleDelay:    3 * time.Second,
		StartTimeout:   15 * time.Second,
	}
}

// Load reads the profile from path, falling back to $SYSBOX_INSTALLER_CONFIG
// and then to defaults when no file is given. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(ProfileEnvVar)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read install profile: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse install profile: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects profiles this installer cannot act on.
func (c *Config) Validate() error {
	switch c.AccessMode {
	case AccessNsenter, AccessChroot:
	default:
		return fmt.Errorf("%w: access_mode %q", ierr.ErrInvalidConfig, c.AccessMode)
	}

	switch c.Overlay {
	case OverlayPersistent, OverlayVolatile:
	default:
		return fmt.Errorf("%w: overlay_policy %q", ierr.ErrInvalidConfig, c.Overlay)
	}

	if c.AccessMode == AccessChroot && c.HostRoot == "" {
		return fmt.Errorf("%w: chroot mode requires host_root", ierr.ErrInvalidConfig)
	}
	if c.SettleDelay < 0 || c.StartTimeout <= 0 {
		return fmt.Errorf("%w: settle_delay must be >= 0 and start_timeout > 0", ierr.ErrInvalidConfig)
	}

	return nil
}

// UpperDir returns the host path holding the /etc overlay's upper layer
// under the configured policy.
func (c *Config) UpperDir() string {
	if c.Overlay == OverlayVolatile {
		return "/run/dstack/etc-overlay/upper"
	}
	return c.PersistDir + "/etc-overlay/upper"
}

// WorkDir returns the host path holding the /etc overlay's work directory.
// It must live on the same filesystem as the upper layer.
func (c *Config) WorkDir() string {
	if c.Overlay == OverlayVolatile {
		return "/run/dstack/etc-overlay/work"
	}
	return c.PersistDir + "/etc-overlay/work"
}

// AccountsUpperDir returns the upper layer for the always-persistent accounts
// subtree. This one never follows the volatile policy.
func (c *Config) AccountsUpperDir() string {
	return c.PersistDir + "/accounts-overlay/upper"
}

// AccountsWorkDir returns the work directory paired with AccountsUpperDir.
func (c *Config) AccountsWorkDir() string {
	return c.PersistDir + "/accounts-overlay/work"
}
