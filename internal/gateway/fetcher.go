// Package gateway provides the fetch sources behind the report: the gh CLI
// source, the direct GitHub API source, and the local probes (git remote,
// token) both of them lean on.
package gateway

import (
	"context"

	"github.com/okabe-dev/repo-activity/internal/domain"
)

// DefaultLimit is the per-category search result ceiling applied when the
// caller does not pick one. It matches the hard cap of the search API, so
// by default a search-backed source returns everything the platform is
// willing to serve.
const DefaultLimit = 1000

// Fetcher lists the candidate records behind one report category. The
// window is advisory: sources narrow their queries with it where they can,
// but only to whole days, so the caller still applies the exact date filter
// to whatever comes back.
type Fetcher interface {
	Fetch(ctx context.Context, repo domain.Repo, category domain.Category, window domain.TimeWindow) ([]domain.ActivityRecord, error)
}
