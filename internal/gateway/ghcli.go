package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okabe-dev/repo-activity/internal/domain"
)

// searchFields is the --json field list requested from gh. The search
// surface exposes no mergedAt; see ghSearchItem.record for how the merged
// query compensates.
const searchFields = "number,title,url,createdAt,closedAt,author,authorAssociation"

// CLIFetcher lists records by shelling out to the gh CLI. It is the default
// source: gh brings its own login along, so no token ever passes through
// this process.
type CLIFetcher struct {
	ghPath string
	limit  int
	run    Runner
	logger logrus.FieldLogger
}

// NewCLIFetcher builds the gh source. An empty ghPath means "gh" from PATH,
// a nil run means the real subprocess, a non-positive limit means
// DefaultLimit.
func NewCLIFetcher(ghPath string, limit int, run Runner, logger logrus.FieldLogger) *CLIFetcher {
	if ghPath == "" {
		ghPath = "gh"
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if run == nil {
		run = ExecRunner
	}
	return &CLIFetcher{
		ghPath: ghPath,
		limit:  limit,
		run:    run,
		logger: logger,
	}
}

// Fetch runs the category's query through gh search and parses the JSON it
// prints. Any way the command can misbehave surfaces as an
// ExternalToolError.
func (f *CLIFetcher) Fetch(ctx context.Context, repo domain.Repo, category domain.Category, window domain.TimeWindow) ([]domain.ActivityRecord, error) {
	query := category.SearchQuery(repo, window)
	sub := "prs"
	if category.Kind() == domain.KindIssue {
		sub = "issues"
	}
	args := []string{"search", sub, query, "--json", searchFields, "--limit", strconv.Itoa(f.limit)}

	f.logger.WithField("query", query).Debug("running gh search")
	out, err := f.run(ctx, f.ghPath, args...)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", category, err)
	}

	var items []ghSearchItem
	if err := json.Unmarshal(out, &items); err != nil {
		return nil, &ExternalToolError{Tool: f.ghPath, Err: fmt.Errorf("parsing search output: %w", err)}
	}
	if len(items) >= f.limit {
		f.logger.WithFields(logrus.Fields{
			"query": query,
			"limit": f.limit,
		}).Warn("search hit the result limit, counts may be truncated")
	}

	records := make([]domain.ActivityRecord, 0, len(items))
	for i, item := range items {
		rec, err := item.record(category)
		if err != nil {
			return nil, &ExternalToolError{Tool: f.ghPath, Err: fmt.Errorf("search result %d: %w", i, err)}
		}
		records = append(records, rec)
	}
	return records, nil
}

// ghSearchItem is one element of gh's --json output. Timestamps that never
// happened arrive either as null or as the zero time depending on the gh
// version, so they are parsed as plain time.Time and squashed through
// optionalTime.
type ghSearchItem struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
	ClosedAt  time.Time `json:"closedAt"`
	Author    struct {
		Login string `json:"login"`
	} `json:"author"`
	AuthorAssociation string `json:"authorAssociation"`
}

func (it ghSearchItem) record(category domain.Category) (domain.ActivityRecord, error) {
	switch {
	case it.Number == 0:
		return domain.ActivityRecord{}, errors.New("missing number")
	case it.URL == "":
		return domain.ActivityRecord{}, fmt.Errorf("#%d: missing url", it.Number)
	case it.CreatedAt.IsZero():
		return domain.ActivityRecord{}, fmt.Errorf("#%d: missing createdAt", it.Number)
	}

	rec := domain.ActivityRecord{
		Kind:        category.Kind(),
		Number:      it.Number,
		Title:       it.Title,
		Author:      it.Author.Login,
		Association: domain.Association(it.AuthorAssociation),
		CreatedAt:   it.CreatedAt,
		ClosedAt:    optionalTime(it.ClosedAt),
		URL:         it.URL,
	}
	// The search surface has no mergedAt field, but GitHub stamps closed_at
	// with the merge instant when a PR is merged, so for the is:merged
	// query the close time doubles as the merge time.
	if category == domain.PRsMerged {
		rec.MergedAt = rec.ClosedAt
	}
	return rec, nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t
	return &u
}
