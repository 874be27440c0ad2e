// Package errors provides standard error types for the sysbox installer.
//
// These sentinel errors allow callers to check for specific error conditions
// using errors.Is(), enabling programmatic error handling.
package errors

import "errors"

// Attestation errors
var (
	// ErrVersionMismatch indicates the staged artifacts report a different daemon
	// version than the one this installer was built for.
	ErrVersionMismatch = errors.New("staged artifact version does not match pinned version")

	// ErrCommitMismatch indicates the staged artifacts were built from a different
	// source commit than the pinned one.
	ErrCommitMismatch = errors.New("staged artifact commit does not match pinned commit")

	// ErrChecksumMismatch indicates a staged file's content does not match its
	// manifest checksum.
	ErrChecksumMismatch = errors.New("staged artifact checksum mismatch")
)

// Host access errors
var (
	// ErrHostCommand indicates a mutating command failed on the host.
	ErrHostCommand = errors.New("host command failed")

	// ErrInvalidAccessMode indicates the configured host access mode is not supported.
	ErrInvalidAccessMode = errors.New("invalid host access mode")
)

// Installation errors
var (
	// ErrAlreadyInstalled indicates the target daemons are already present on the host.
	ErrAlreadyInstalled = errors.New("sysbox is already installed")

	// ErrUnitMissing indicates a service unit file is absent where the install
	// sequence requires it to exist.
	ErrUnitMissing = errors.New("service unit file missing")

	// ErrOverlayMount indicates the configuration overlay could not be mounted.
	ErrOverlayMount = errors.New("config overlay mount failed")

	// ErrMergeFailed indicates the docker daemon configuration merge failed and
	// the previous configuration was restored from backup.
	ErrMergeFailed = errors.New("daemon config merge failed, backup restored")
)

// Configuration errors
var (
	// ErrInvalidConfig indicates the install profile is invalid.
	ErrInvalidConfig = errors.New("invalid install profile")
)
