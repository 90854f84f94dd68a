package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryNames(t *testing.T) {
	assert.Equal(t, "opened PRs", PRsOpened.String())
	assert.Equal(t, "merged PRs", PRsMerged.String())
	assert.Equal(t, "opened issues", IssuesOpened.String())
	assert.Equal(t, "closed issues", IssuesClosed.String())

	assert.Equal(t, "opened-prs", PRsOpened.Slug())
	assert.Equal(t, "merged-prs", PRsMerged.Slug())
	assert.Equal(t, "opened-issues", IssuesOpened.Slug())
	assert.Equal(t, "closed-issues", IssuesClosed.Slug())
}

func TestCategoryEventTime(t *testing.T) {
	created := time.Date(2022, 9, 10, 8, 0, 0, 0, time.UTC)
	closed := created.Add(24 * time.Hour)
	merged := created.Add(30 * time.Hour)

	openPR := ActivityRecord{Kind: KindPR, Number: 1, CreatedAt: created}
	mergedPR := ActivityRecord{Kind: KindPR, Number: 2, CreatedAt: created, ClosedAt: &merged, MergedAt: &merged}
	closedIssue := ActivityRecord{Kind: KindIssue, Number: 3, CreatedAt: created, ClosedAt: &closed}
	openIssue := ActivityRecord{Kind: KindIssue, Number: 4, CreatedAt: created}

	testCases := []struct {
		name     string
		category Category
		record   ActivityRecord
		expected *time.Time
	}{
		{name: "opened PRs use creation time", category: PRsOpened, record: openPR, expected: &created},
		{name: "merged PRs use merge time", category: PRsMerged, record: mergedPR, expected: &merged},
		// An unmerged PR has no merge time and must never be counted as merged.
		{name: "unmerged PR has no merge event", category: PRsMerged, record: openPR, expected: nil},
		{name: "closed issues use close time", category: IssuesClosed, record: closedIssue, expected: &closed},
		{name: "open issue has no close event", category: IssuesClosed, record: openIssue, expected: nil},
		{name: "opened issues use creation time", category: IssuesOpened, record: closedIssue, expected: &created},
		{name: "record without creation time yields nothing", category: PRsOpened, record: ActivityRecord{Kind: KindPR}, expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.category.EventTime(tc.record)
			if tc.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, got.Equal(*tc.expected))
		})
	}
}

func TestCategorySearchQuery(t *testing.T) {
	repo := Repo{Owner: "immunant", Name: "c2rust"}
	after := time.Date(2022, 9, 9, 0, 0, 0, 0, time.UTC)
	window := TimeWindow{After: &after}

	testCases := []struct {
		category Category
		expected string
	}{
		{PRsOpened, "repo:immunant/c2rust is:pr created:2022-09-09..*"},
		{PRsMerged, "repo:immunant/c2rust is:pr is:merged merged:2022-09-09..*"},
		{IssuesOpened, "repo:immunant/c2rust is:issue created:2022-09-09..*"},
		{IssuesClosed, "repo:immunant/c2rust is:issue is:closed closed:2022-09-09..*"},
	}

	for _, tc := range testCases {
		t.Run(tc.category.Slug(), func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.category.SearchQuery(repo, window))
		})
	}

	// Without bounds there is no date qualifier at all.
	assert.Equal(t,
		"repo:immunant/c2rust is:pr is:merged",
		PRsMerged.SearchQuery(repo, TimeWindow{}),
	)
}
