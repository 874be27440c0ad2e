// Package attest verifies the provenance of the staged sysbox artifacts
// before anything touches the host.
//
// The helper image stages prebuilt binaries together with a VERSION file, a
// COMMIT file, and a SHA256SUMS manifest, all produced by the (external)
// build stage. This package pins the expected version tag and source commit
// and checks every manifest entry against the staged file content. Any
// mismatch is a fatal integrity failure, not a warning.
package attest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	ierr "github.com/Dstack-TEE/dstack-sysbox-installer/pkg/errors"
)

// Pinned identity of the sysbox build this installer distributes.
const (
	Version = "v0.6.4"
	Commit  = "5f7dd1e6f10d48a35a5b6fc36ba4ec386a4c0557"
)

const (
	versionFile  = "VERSION"
	commitFile   = "COMMIT"
	manifestFile = "SHA256SUMS"
)

// Verify checks the staged artifacts under stageDir against the pinned
// version, commit, and checksum manifest. It must run before the first host
// mutation; a nil error means every staged file is the one the build stage
// produced.
func Verify(stageDir string) error {
	if err := verifyPin(filepath.Join(stageDir, versionFile), Version, ierr.ErrVersionMismatch); err != nil {
		return err
	}
	if err := verifyPin(filepath.Join(stageDir, commitFile), Commit, ierr.ErrCommitMismatch); err != nil {
		return err
	}
	return verifyManifest(stageDir)
}

func verifyPin(path, want string, mismatch error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	got := strings.TrimSpace(string(data))
	if got != want {
		return fmt.Errorf("%w: got %q, want %q", mismatch, got, want)
	}
	return nil
}

// verifyManifest checks every SHA256SUMS entry. Format is the standard
// sha256sum output: "<hex>  <relative path>" per line.
func verifyManifest(stageDir string) error {
	f, err := os.Open(filepath.Join(stageDir, manifestFile))
	if err != nil {
		return fmt.Errorf("open checksum manifest: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	checked := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return fmt.Errorf("%w: malformed manifest line %q", ierr.ErrChecksumMismatch, line)
		}

		want := digest.NewDigestFromEncoded(digest.SHA256, fields[0])
		if err := want.Validate(); err != nil {
			return fmt.Errorf("%w: bad digest in manifest for %s: %v", ierr.ErrChecksumMismatch, fields[1], err)
		}

		if err := verifyFile(filepath.Join(stageDir, fields[1]), want); err != nil {
			return err
		}
		checked++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read checksum manifest: %w", err)
	}
	if checked == 0 {
		return fmt.Errorf("%w: checksum manifest is empty", ierr.ErrChecksumMismatch)
	}
	return nil
}

func verifyFile(path string, want digest.Digest) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open staged file %s: %w", path, err)
	}
	defer f.Close()

	got, err := digest.SHA256.FromReader(f)
	if err != nil {
		return fmt.Errorf("digest staged file %s: %w", path, err)
	}
	if got != want {
		return fmt.Errorf("%w: %s: got %s, want %s", ierr.ErrChecksumMismatch, filepath.Base(path), got, want)
	}
	return nil
}
