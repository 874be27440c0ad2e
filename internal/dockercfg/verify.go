package dockercfg

import (
	"context"

	"github.com/docker/docker/client"
)

// VerifyRegistered asks the live docker daemon whether the sysbox runtime is
// in its runtime map. Read-only and advisory: the daemon may simply not have
// reloaded its configuration yet, so callers report rather than fail.
func VerifyRegistered(ctx context.Context) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()

	info, err := cli.Info(ctx)
	if err != nil {
		return false, err
	}

	_, ok := info.Runtimes[RuntimeName]
	return ok, nil
}
