package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/okabe-dev/repo-activity/internal/domain"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, repo domain.Repo, category domain.Category, window domain.TimeWindow) ([]domain.ActivityRecord, error) {
	args := m.Called(ctx, repo, category, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ActivityRecord), args.Error(1)
}

func testStore(t *testing.T) *Store {
	store, err := NewStore(filepath.Join(t.TempDir(), "cache.db"), "responses")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestFetcher_MissThenHit(t *testing.T) {
	repo := domain.Repo{Owner: "immunant", Name: "c2rust"}
	after := time.Date(2022, 9, 9, 0, 0, 0, 0, time.UTC)
	window := domain.TimeWindow{After: &after}

	closed := time.Date(2022, 9, 12, 10, 11, 0, 0, time.UTC)
	fetched := []domain.ActivityRecord{
		{
			Kind:        domain.KindPR,
			Number:      70,
			Title:       "Fix tokenizer panic",
			Author:      "alice",
			Association: domain.AssociationMember,
			CreatedAt:   time.Date(2022, 9, 11, 8, 0, 0, 0, time.UTC),
			ClosedAt:    &closed,
			MergedAt:    &closed,
			URL:         "https://github.com/immunant/c2rust/pull/70",
		},
	}

	inner := new(mockFetcher)
	inner.On("Fetch", mock.Anything, repo, domain.PRsMerged, window).Return(fetched, nil).Once()

	logger, _ := test.NewNullLogger()
	fetcher := NewFetcher(inner, testStore(t), logger)

	// First call goes through to the source.
	records, err := fetcher.Fetch(context.Background(), repo, domain.PRsMerged, window)
	require.NoError(t, err)
	assert.Equal(t, fetched, records)

	// Second call is served from the store; the Once() above makes any
	// second inner fetch fail the test.
	records, err = fetcher.Fetch(context.Background(), repo, domain.PRsMerged, window)
	require.NoError(t, err)
	assert.Equal(t, fetched, records)

	inner.AssertExpectations(t)
	inner.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestFetcher_CachesEmptyResponses(t *testing.T) {
	repo := domain.Repo{Owner: "o", Name: "quiet"}

	inner := new(mockFetcher)
	inner.On("Fetch", mock.Anything, repo, domain.IssuesClosed, domain.TimeWindow{}).
		Return([]domain.ActivityRecord{}, nil).Once()

	logger, _ := test.NewNullLogger()
	fetcher := NewFetcher(inner, testStore(t), logger)

	records, err := fetcher.Fetch(context.Background(), repo, domain.IssuesClosed, domain.TimeWindow{})
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = fetcher.Fetch(context.Background(), repo, domain.IssuesClosed, domain.TimeWindow{})
	require.NoError(t, err)
	assert.Empty(t, records)

	inner.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestFetcher_DistinctQueriesMissIndependently(t *testing.T) {
	repo := domain.Repo{Owner: "o", Name: "n"}

	inner := new(mockFetcher)
	inner.On("Fetch", mock.Anything, repo, domain.PRsOpened, domain.TimeWindow{}).
		Return([]domain.ActivityRecord{}, nil).Once()
	inner.On("Fetch", mock.Anything, repo, domain.IssuesOpened, domain.TimeWindow{}).
		Return([]domain.ActivityRecord{}, nil).Once()

	logger, _ := test.NewNullLogger()
	fetcher := NewFetcher(inner, testStore(t), logger)

	_, err := fetcher.Fetch(context.Background(), repo, domain.PRsOpened, domain.TimeWindow{})
	require.NoError(t, err)
	_, err = fetcher.Fetch(context.Background(), repo, domain.IssuesOpened, domain.TimeWindow{})
	require.NoError(t, err)

	inner.AssertExpectations(t)
}

func TestFetcher_SourceErrorsAreNotCached(t *testing.T) {
	repo := domain.Repo{Owner: "o", Name: "n"}

	inner := new(mockFetcher)
	inner.On("Fetch", mock.Anything, repo, domain.PRsOpened, domain.TimeWindow{}).
		Return(nil, errors.New("github api error")).Once()
	inner.On("Fetch", mock.Anything, repo, domain.PRsOpened, domain.TimeWindow{}).
		Return([]domain.ActivityRecord{}, nil).Once()

	logger, _ := test.NewNullLogger()
	fetcher := NewFetcher(inner, testStore(t), logger)

	_, err := fetcher.Fetch(context.Background(), repo, domain.PRsOpened, domain.TimeWindow{})
	require.Error(t, err)

	// The failure left no entry behind, so the retry fetches again.
	_, err = fetcher.Fetch(context.Background(), repo, domain.PRsOpened, domain.TimeWindow{})
	require.NoError(t, err)
	inner.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestFetcher_CorruptEntryIsAnError(t *testing.T) {
	repo := domain.Repo{Owner: "o", Name: "n"}
	store := testStore(t)

	key := domain.PRsOpened.SearchQuery(repo, domain.TimeWindow{})
	require.NoError(t, store.UpdateKey([]byte(key), []byte("not json")))

	inner := new(mockFetcher)
	logger, _ := test.NewNullLogger()
	fetcher := NewFetcher(inner, store, logger)

	_, err := fetcher.Fetch(context.Background(), repo, domain.PRsOpened, domain.TimeWindow{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt cache entry")
	// A corrupt entry is surfaced, never silently refetched.
	inner.AssertNumberOfCalls(t, "Fetch", 0)
}
