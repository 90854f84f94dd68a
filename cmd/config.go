package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces the tool's environment variables, REPO_ACTIVITY_*.
const envPrefix = "REPO_ACTIVITY"

// settings are the environment-driven knobs. They cover the things a
// scripted run pins once per machine (binary paths, cache location), which
// would only clutter the command line as flags.
type settings struct {
	GHPath      string `envconfig:"GH_PATH" default:"gh"`
	GitPath     string `envconfig:"GIT_PATH" default:"git"`
	APIAddress  string `envconfig:"API_ADDRESS"`
	CachePath   string `envconfig:"CACHE_PATH"`
	CacheBucket string `envconfig:"CACHE_BUCKET" default:"responses"`
	// FetchTimeout bounds the whole fetch phase. Zero means no deadline,
	// which suits the list strategy on very large repositories.
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT"`
}

func loadSettings() (settings, error) {
	var s settings
	if err := envconfig.Process(envPrefix, &s); err != nil {
		return settings{}, fmt.Errorf("reading %s_* environment: %w", envPrefix, err)
	}
	return s, nil
}

// cachePath is the database location: the explicit setting when given,
// otherwise a stable spot under the user cache directory.
func (s settings) cachePath() (string, error) {
	if s.CachePath != "" {
		return s.CachePath, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating user cache directory: %w", err)
	}
	return filepath.Join(dir, "repo-activity", "cache.db"), nil
}
