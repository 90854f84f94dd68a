// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/okabe-dev/repo-activity/internal/domain"
	"github.com/okabe-dev/repo-activity/internal/gateway"
)

// Aggregator is the use case for building an activity summary.
// It orchestrates the per-category fetches and turns raw records into
// tallies.
type Aggregator struct {
	fetcher gateway.Fetcher
	logger  logrus.FieldLogger
}

// Options control what a summary carries beyond the counts.
type Options struct {
	// IncludeRecords keeps the matching records on each tally, in event
	// order, for the itemized report.
	IncludeRecords bool
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(fetcher gateway.Fetcher, logger logrus.FieldLogger) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Summarize fetches all four categories concurrently and tallies each one.
// Any fetch error aborts the whole summary: a partial report would be
// worse than none.
func (a *Aggregator) Summarize(ctx context.Context, repo domain.Repo, window domain.TimeWindow, opts Options) ([]domain.CategoryTally, error) {
	a.logger.WithField("repo", repo.String()).Debug("starting aggregation")

	categories := domain.Categories()
	candidates := make([][]domain.ActivityRecord, len(categories))

	// Each goroutine writes only its own slot, so no locking is needed.
	eg, egCtx := errgroup.WithContext(ctx)
	for i, category := range categories {
		eg.Go(func() error {
			records, err := a.fetcher.Fetch(egCtx, repo, category, window)
			if err != nil {
				return err
			}
			candidates[i] = records
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	tallies := make([]domain.CategoryTally, 0, len(categories))
	for i, category := range categories {
		tallies = append(tallies, a.tally(category, window, candidates[i], opts))
	}
	a.logger.Debug("aggregation complete")
	return tallies, nil
}

// tally applies the date filter and the bucket split to one category's
// candidates. Candidates may be a superset of the window (search
// qualifiers are day-granular, full listings are unfiltered entirely), so
// the containment check here is the authoritative one. A record lacking
// the category's timestamp never had the event and is skipped.
func (a *Aggregator) tally(category domain.Category, window domain.TimeWindow, candidates []domain.ActivityRecord, opts Options) domain.CategoryTally {
	var t domain.Tally
	var hours []float64
	for _, r := range candidates {
		et := category.EventTime(r)
		if et == nil || !window.Contains(*et) {
			continue
		}
		t.Add(r, opts.IncludeRecords)
		if category.Terminal() && !r.CreatedAt.IsZero() {
			hours = append(hours, et.Sub(r.CreatedAt).Hours())
		}
	}
	if opts.IncludeRecords {
		sortRecords(category, t.Records)
	}

	ct := domain.CategoryTally{Category: category, Tally: t}
	if len(hours) > 0 {
		ct.MedianHours, _ = stats.Median(hours)
		ct.P90Hours, _ = stats.Percentile(hours, 90)
	}

	a.logger.WithFields(logrus.Fields{
		"category":     category.Slug(),
		"candidates":   len(candidates),
		"collaborator": t.Collaborator,
		"community":    t.Community,
	}).Debug("category tallied")
	return ct
}

// sortRecords orders by event time, then number, so identical inputs
// always render identically.
func sortRecords(category domain.Category, records []domain.ActivityRecord) {
	sort.Slice(records, func(i, j int) bool {
		ti, tj := category.EventTime(records[i]), category.EventTime(records[j])
		if ti.Equal(*tj) {
			return records[i].Number < records[j].Number
		}
		return ti.Before(*tj)
	})
}
