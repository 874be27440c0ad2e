package host

import (
	"bytes"
	"fmt"
	"os/exec"
)

// Runner executes a single command and reports stdout and the exit code.
// The production implementation shells out; tests substitute a fake to
// script host responses without touching a real host.
type Runner interface {
	Run(name string, args ...string) (stdout []byte, exitCode int, err error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(name string, args ...string) ([]byte, int, error) {
	cmd := exec.Command(name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), 0, nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		msg := bytes.TrimSpace(stderr.Bytes())
		if len(msg) == 0 {
			return stdout.Bytes(), exitErr.ExitCode(), fmt.Errorf("%s exited with code %d", name, exitErr.ExitCode())
		}
		return stdout.Bytes(), exitErr.ExitCode(), fmt.Errorf("%s: %s", name, msg)
	}

	// Command did not start (not found, permission denied).
	return nil, -1, fmt.Errorf("run %s: %w", name, err)
}
