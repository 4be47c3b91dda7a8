package adapters

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
)

// runCommand executes an external tool and returns its trimmed stdout. The
// context deadline kills the process; callers classify the returned error
// with classify().
func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Prefer the deadline error so timeouts classify correctly.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}

	return strings.TrimSpace(stdout.String()), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist)
}

func isPermission(err error) bool {
	return errors.Is(err, os.ErrPermission)
}
