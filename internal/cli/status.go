package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/installer"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current sysbox installation state",
	Long: `Show the current sysbox installation state.

Read-only: reports per-unit liveness, data directory locations, and
whether the docker daemon currently exposes the sysbox-runc runtime.

Examples:
  sysbox-installer status
  sysbox-installer status --format json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "table", "output format (table/json)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusFormat != "table" && statusFormat != "json" {
		return fmt.Errorf("unknown format %q (want table or json)", statusFormat)
	}

	cfg, err := loadProfile()
	if err != nil {
		return err
	}

	in, err := installer.New(cfg)
	if err != nil {
		return err
	}
	return in.Report(cmd.Context(), os.Stdout, statusFormat)
}
