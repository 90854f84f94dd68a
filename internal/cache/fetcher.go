package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okabe-dev/repo-activity/internal/domain"
	"github.com/okabe-dev/repo-activity/internal/gateway"
)

// KV is the slice of the store the decorator needs.
type KV interface {
	ReadKey(key []byte) ([]byte, error)
	UpdateKey(key []byte, data []byte) error
}

// Fetcher wraps another fetch source with the response cache. The key is
// the category's canonical search query, so distinct repositories,
// categories and window days land on distinct entries, and the same query
// is a hit no matter which source first answered it.
type Fetcher struct {
	inner  gateway.Fetcher
	kv     KV
	logger logrus.FieldLogger
}

// NewFetcher creates the caching decorator around inner.
func NewFetcher(inner gateway.Fetcher, kv KV, logger logrus.FieldLogger) *Fetcher {
	return &Fetcher{
		inner:  inner,
		kv:     kv,
		logger: logger,
	}
}

// cacheEntry is the serialized form of one stored response.
type cacheEntry struct {
	Created time.Time               `json:"created"`
	Records []domain.ActivityRecord `json:"records"`
}

// Fetch serves the query from the store when it can, delegating to the
// wrapped source on a miss and keeping what came back. A stored empty
// response is still a hit.
func (f *Fetcher) Fetch(ctx context.Context, repo domain.Repo, category domain.Category, window domain.TimeWindow) ([]domain.ActivityRecord, error) {
	key := category.SearchQuery(repo, window)

	data, err := f.kv.ReadKey([]byte(key))
	if err != nil {
		return nil, err
	}
	if data != nil {
		var entry cacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("corrupt cache entry for %q: %w", key, err)
		}
		f.logger.WithFields(logrus.Fields{
			"key": key,
			"age": time.Since(entry.Created).Round(time.Second).String(),
		}).Debug("cache hit")
		return entry.Records, nil
	}

	records, err := f.inner.Fetch(ctx, repo, category, window)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(cacheEntry{Created: time.Now(), Records: records})
	if err != nil {
		return nil, fmt.Errorf("serializing cache entry: %w", err)
	}
	if err := f.kv.UpdateKey([]byte(key), data); err != nil {
		return nil, err
	}
	f.logger.WithField("key", key).Debug("cached response")
	return records, nil
}
