package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/dockercfg"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/sysinit"
)

// SysboxDataDir is where the manager keeps container state on the host.
const SysboxDataDir = "/var/lib/sysbox"

// UnitStatus is one unit's liveness at report time.
type UnitStatus struct {
	Unit   string `json:"unit"`
	Active bool   `json:"active"`
}

// Status is the operator-facing summary. Collecting it is read-only.
type Status struct {
	Units             []UnitStatus `json:"units"`
	DataDir           string       `json:"data_dir"`
	OverlayUpper      string       `json:"overlay_upper"`
	AccountsUpper     string       `json:"accounts_upper"`
	RuntimeRegistered *bool        `json:"runtime_registered,omitempty"`
}

// Collect queries current unit liveness and the docker daemon's runtime map.
// An unreachable docker daemon leaves RuntimeRegistered nil rather than
// failing the report.
func (in *Installer) Collect(ctx context.Context) Status {
	st := Status{
		DataDir:       SysboxDataDir,
		OverlayUpper:  in.cfg.UpperDir(),
		AccountsUpper: in.cfg.AccountsUpperDir(),
	}

	for _, unit := range []string{sysinit.ManagerUnit, sysinit.FsUnit} {
		st.Units = append(st.Units, UnitStatus{
			Unit:   unit,
			Active: sysinit.IsActive(in.h, unit),
		})
	}

	if registered, err := dockercfg.VerifyRegistered(ctx); err == nil {
		st.RuntimeRegistered = &registered
	}

	return st
}

// Report renders the status summary in the requested format (table or json).
func (in *Installer) Report(ctx context.Context, w io.Writer, format string) error {
	st := in.Collect(ctx)

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	tw := tabwriter.NewWriter(w, 2, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "UNIT\tACTIVE")
	for _, u := range st.Units {
		fmt.Fprintf(tw, "%s\t%v\n", u.Unit, u.Active)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\ndata dir:\t%s\n", st.DataDir)
	fmt.Fprintf(w, "overlay upper:\t%s\n", st.OverlayUpper)
	fmt.Fprintf(w, "accounts upper:\t%s\n", st.AccountsUpper)

	switch {
	case st.RuntimeRegistered == nil:
		fmt.Fprintln(w, "docker runtime: unknown (docker daemon unreachable)")
	case *st.RuntimeRegistered:
		fmt.Fprintf(w, "docker runtime: %s registered\n", dockercfg.RuntimeName)
	default:
		fmt.Fprintf(w, "docker runtime: %s not visible yet; restart docker to reload its config\n", dockercfg.RuntimeName)
	}
	return nil
}
