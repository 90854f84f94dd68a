package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ResolveToken finds the token for the direct-API source: GITHUB_TOKEN when
// set, otherwise whatever gh's own keyring holds. Authentication stays
// delegated to gh either way; this tool never runs a login flow of its own.
func ResolveToken(ctx context.Context, ghPath string, run Runner) (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}
	if ghPath == "" {
		ghPath = "gh"
	}
	if run == nil {
		run = ExecRunner
	}
	out, err := run(ctx, ghPath, "auth", "token")
	if err != nil {
		return "", fmt.Errorf("no GITHUB_TOKEN set and gh has no stored login: %w", err)
	}
	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", errors.New("gh auth token printed nothing")
	}
	return token, nil
}
