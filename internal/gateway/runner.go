package gateway

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// Runner executes a command and returns its stdout. It exists so tests can
// stand in for the real subprocess.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner is the Runner used in production. Failures come back as an
// ExternalToolError carrying the command's stderr.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, &ExternalToolError{
			Tool:   name,
			Err:    err,
			Stderr: strings.TrimSpace(stderr.String()),
		}
	}
	return out, nil
}
