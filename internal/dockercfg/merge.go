// Package dockercfg registers the sysbox runtime in docker's daemon
// configuration without disturbing anything else in it.
//
// daemon.json is shared state: log drivers, log rotation, and other runtimes
// may already be configured there. The merge must preserve all of them, and a
// backup must exist before any overwrite so the prior behavior is restorable
// on failure.
package dockercfg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/config"
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/host"
	ierr "github.com/Dstack-TEE/dstack-sysbox-installer/pkg/errors"
	"github.com/Dstack-TEE/dstack-sysbox-installer/pkg/fileutil"
)

// RuntimeName is the key added to the daemon's runtimes map.
const RuntimeName = "sysbox-runc"

// mergeHelper is the version-matched config editor shipped with the sysbox
// distribution. When provisioned onto the host it is preferred over the
// in-process merge.
const mergeHelper = "docker-cfg"

// BackupSuffix names the sibling backup written before any mutation.
const BackupSuffix = ".backup"

// RegisterRuntime adds the sysbox-runc runtime entry to the daemon config.
//
// Strategy: with no existing file a full template write is safe. With an
// existing file the staged merge helper is delegated to when available;
// otherwise a structural merge through a generic map preserves every
// unrelated key. Either way the prior content is backed up first and restored
// if the merge fails — the config is never left neither intact nor
// known-upgraded.
func RegisterRuntime(h *host.Handle, cfg *config.Config) error {
	path := h.HostPath(cfg.DockerConfig)
	binPath := filepath.Join(cfg.BinDir, RuntimeName)

	existing, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return writeTemplate(path, binPath)
	}
	if err != nil {
		return fmt.Errorf("read daemon config: %w", err)
	}

	if err := fileutil.AtomicWriteFile(path+BackupSuffix, existing, 0644); err != nil {
		return fmt.Errorf("back up daemon config: %w", err)
	}

	if h.Probe("sh", "-c", "command -v "+mergeHelper) {
		return mergeWithHelper(h, cfg, path, existing, binPath)
	}
	return mergeInProcess(path, existing, binPath)
}

// writeTemplate writes a fresh daemon config containing only the runtime
// entry. Acceptable only because no prior configuration exists: a template
// write over real content would destroy unknown keys.
func writeTemplate(path, binPath string) error {
	doc := map[string]any{
		"runtimes": map[string]any{
			RuntimeName: map[string]any{"path": binPath},
		},
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode daemon config: %w", err)
	}
	if err := fileutil.EnsureDir(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return fileutil.AtomicWriteFile(path, append(data, '\n'), 0644)
}

// mergeWithHelper delegates to the distribution's own config editor, which
// edits the file in place on the host. On failure the backup is restored and
// the error is fatal.
func mergeWithHelper(h *host.Handle, cfg *config.Config, path string, backup []byte, binPath string) error {
	_, err := h.Run(mergeHelper, "--add-runtime", RuntimeName+":"+binPath, "--config", cfg.DockerConfig)
	if err == nil {
		return nil
	}

	if restoreErr := fileutil.AtomicWriteFile(path, backup, 0644); restoreErr != nil {
		return fmt.Errorf("%w: %v (backup restore also failed: %v)", ierr.ErrMergeFailed, err, restoreErr)
	}
	return fmt.Errorf("%w: %v", ierr.ErrMergeFailed, err)
}

// mergeInProcess decodes the config into a generic map, adds the runtime
// entry, and writes the result atomically. Unknown top-level keys and other
// runtimes pass through untouched.
func mergeInProcess(path string, existing []byte, binPath string) error {
	doc := map[string]any{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &doc); err != nil {
			return fmt.Errorf("%w: parse existing config: %v", ierr.ErrMergeFailed, err)
		}
	}

	runtimes, ok := doc["runtimes"].(map[string]any)
	if !ok {
		runtimes = map[string]any{}
	}
	runtimes[RuntimeName] = map[string]any{"path": binPath}
	doc["runtimes"] = runtimes

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode merged config: %v", ierr.ErrMergeFailed, err)
	}
	return fileutil.AtomicWriteFile(path, append(data, '\n'), 0644)
}
