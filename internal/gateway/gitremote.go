package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okabe-dev/repo-activity/internal/domain"
)

// DetectRepo resolves the repository from the checkout in the current
// working directory, the same way a shell one-liner would: by asking git
// for the origin remote.
func DetectRepo(ctx context.Context, gitPath string, run Runner) (domain.Repo, error) {
	if gitPath == "" {
		gitPath = "git"
	}
	if run == nil {
		run = ExecRunner
	}
	out, err := run(ctx, gitPath, "config", "--get", "remote.origin.url")
	if err != nil {
		return domain.Repo{}, fmt.Errorf("reading origin remote: %w", err)
	}
	return parseRemoteURL(strings.TrimSpace(string(out)))
}

// parseRemoteURL extracts owner/name from the https and ssh remote forms
// GitHub hands out. Anything not on github.com is rejected rather than
// guessed at.
func parseRemoteURL(remote string) (domain.Repo, error) {
	if remote == "" {
		return domain.Repo{}, errors.New("no origin remote configured")
	}

	var path string
	switch {
	case strings.HasPrefix(remote, "https://github.com/"):
		path = strings.TrimPrefix(remote, "https://github.com/")
	case strings.HasPrefix(remote, "http://github.com/"):
		path = strings.TrimPrefix(remote, "http://github.com/")
	case strings.HasPrefix(remote, "git@github.com:"):
		path = strings.TrimPrefix(remote, "git@github.com:")
	case strings.HasPrefix(remote, "ssh://git@github.com/"):
		path = strings.TrimPrefix(remote, "ssh://git@github.com/")
	default:
		return domain.Repo{}, fmt.Errorf("origin remote %q is not a github.com repository", remote)
	}

	path = strings.TrimSuffix(path, "/")
	path = strings.TrimSuffix(path, ".git")
	repo, err := domain.ParseRepo(path)
	if err != nil {
		return domain.Repo{}, fmt.Errorf("origin remote %q: %w", remote, err)
	}
	return repo, nil
}
