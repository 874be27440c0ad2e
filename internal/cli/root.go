package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/attest"
)

var (
	// Version information
	Version = "0.1.0"

	// Global flags
	// profilePath is the install profile location.
	// Default: $SYSBOX_INSTALLER_CONFIG, or built-in defaults.
	profilePath string
)

var rootCmd = &cobra.Command{
	Use:   "sysbox-installer",
	Short: "Provision the sysbox container runtime onto a dstack host",
	Long: `sysbox-installer provisions the sysbox runtime daemons onto a host
whose root filesystem is immutable, from inside a privileged helper
container.

It handles the host-configuration orchestration around the daemons:
  - Detecting a prior installation (re-running is a safe no-op)
  - Composing a writable overlay over the read-only host /etc
  - Merging docker's daemon.json without clobbering unrelated settings
  - Installing transient systemd units and starting them in order

The sysbox binaries themselves are staged prebuilt in the helper image
(pinned to sysbox ` + attest.Version + `) and verified before any host
mutation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(uninstallCmd)

	rootCmd.PersistentFlags().StringVar(&profilePath, "config", "",
		"install profile path (default: $SYSBOX_INSTALLER_CONFIG or built-in defaults)")
}
