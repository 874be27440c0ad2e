package cli

import (
	"github.com/spf13/cobra"

	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/config"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/installer"
)

var (
	// install command flags override the profile
	accessMode    string
	overlayPolicy string
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install sysbox onto the host",
	Long: `Install sysbox onto the host.

Runs the full pipeline: artifact attestation, prior-install detection,
binary provisioning, /etc overlay composition, docker runtime
registration, transient unit installation, and ordered startup.

A host where sysbox is already installed is left untouched and the
command exits 0.

Examples:
  sysbox-installer install
  sysbox-installer install --access-mode chroot --config /etc/sysbox-installer.yaml
  sysbox-installer install --overlay-policy volatile`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&accessMode, "access-mode", "",
		"host access mode: nsenter or chroot (overrides profile)")
	installCmd.Flags().StringVar(&overlayPolicy, "overlay-policy", "",
		"/etc overlay policy: persistent or volatile (overrides profile)")
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadProfile()
	if err != nil {
		return err
	}

	in, err := installer.New(cfg)
	if err != nil {
		return err
	}
	return in.Run(cmd.Context())
}

// loadProfile loads the install profile and applies flag overrides.
// Precedence: flag > environment > file > default.
func loadProfile() (*config.Config, error) {
	cfg, err := config.Load(profilePath)
	if err != nil {
		return nil, err
	}

	if accessMode != "" {
		cfg.AccessMode = config.AccessMode(accessMode)
	}
	if overlayPolicy != "" {
		cfg.Overlay = config.OverlayPolicy(overlayPolicy)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
