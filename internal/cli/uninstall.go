package cli

import (
	"github.com/spf13/cobra"

	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/installer"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the sysbox units and overlays from the host",
	Long: `Remove the sysbox units and overlays from the host.

Stops the units in reverse start order, removes the transient unit
files, reloads the unit catalog, and unmounts the accounts and /etc
overlays. Binaries and the persistent store are left in place; the
remaining manual steps are printed.`,
	Args: cobra.NoArgs,
	RunE: runUninstall,
}

func runUninstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadProfile()
	if err != nil {
		return err
	}

	in, err := installer.New(cfg)
	if err != nil {
		return err
	}
	return in.Uninstall()
}
