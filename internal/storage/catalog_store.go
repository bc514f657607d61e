package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/treefix50/reelshelf/internal/catalog"
	"github.com/treefix50/reelshelf/internal/metrics"
)

const DefaultCatalogKey = "video_catalog"

// CatalogStore is the only owner of the durable catalog. Every operation
// reads the whole collection, changes it and writes it back under one key.
//
// Failures never reach the caller: reads degrade to an empty collection and
// writes are dropped. Both are logged and counted.
type CatalogStore struct {
	mu      sync.Mutex
	kv      Substrate
	key     string
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

type CatalogStoreConfig struct {
	Key     string
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

func NewCatalogStore(kv Substrate, cfg CatalogStoreConfig) *CatalogStore {
	if cfg.Key == "" {
		cfg.Key = DefaultCatalogKey
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &CatalogStore{
		kv:      kv,
		key:     cfg.Key,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// LoadAll returns every stored entry, or an empty collection when nothing
// usable is stored.
func (s *CatalogStore) LoadAll(ctx context.Context) catalog.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read(ctx)
	if err != nil {
		s.fail("load", err)
		return catalog.Collection{}
	}
	return all
}

// Append adds entry at the end of the collection. Invalid entries are
// refused.
func (s *CatalogStore) Append(ctx context.Context, entry catalog.Entry) {
	if err := entry.Validate(); err != nil {
		s.fail("append", err)
		return
	}
	_ = s.modify(ctx, "append", func(all catalog.Collection) (catalog.Collection, bool) {
		return all.Append(entry), true
	})
}

// UpdateWatchTime replaces the watch time of id. Unknown ids are ignored.
// A failure is logged like any other and also returned, so the caller may
// write the value again later.
func (s *CatalogStore) UpdateWatchTime(ctx context.Context, id string, seconds float64) error {
	return s.modify(ctx, "update_watch_time", func(all catalog.Collection) (catalog.Collection, bool) {
		return all.WithWatchTime(id, seconds)
	})
}

// UpdateMediaRef points id at a new media reference. Unknown ids are ignored.
func (s *CatalogStore) UpdateMediaRef(ctx context.Context, id, ref string) {
	_ = s.modify(ctx, "update_media_ref", func(all catalog.Collection) (catalog.Collection, bool) {
		return all.WithMediaRef(id, ref)
	})
}

// Remove deletes id from the collection. Unknown ids are ignored.
func (s *CatalogStore) Remove(ctx context.Context, id string) {
	_ = s.modify(ctx, "remove", func(all catalog.Collection) (catalog.Collection, bool) {
		return all.Without(id)
	})
}

func (s *CatalogStore) modify(ctx context.Context, op string, fn func(catalog.Collection) (catalog.Collection, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read(ctx)
	if err != nil {
		// a failed read must not turn into an overwrite with an empty set
		return s.fail(op, err)
	}
	updated, changed := fn(all)
	if !changed {
		return nil
	}
	if err := s.write(ctx, updated); err != nil {
		return s.fail(op, err)
	}
	return nil
}

func (s *CatalogStore) read(ctx context.Context) (catalog.Collection, error) {
	if s == nil || s.kv == nil {
		return nil, errMissingDB
	}
	data, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if !ok || len(data) == 0 {
		return catalog.Collection{}, nil
	}

	var all catalog.Collection
	if err := json.Unmarshal(data, &all); err != nil {
		s.logger.WithFields(logrus.Fields{
			"key":   s.key,
			"bytes": len(data),
		}).WithError(err).Warn("Stored catalog is not readable, treating it as empty")
		return catalog.Collection{}, nil
	}

	out := make(catalog.Collection, 0, len(all))
	for i, e := range all {
		repaired, fixed := e.Repair(func() string { return storedEntryID(i, e) })
		if len(fixed) > 0 {
			// kept, so the next write does not erase it
			s.logger.WithFields(logrus.Fields{
				"id":    repaired.ID,
				"fixed": fixed,
			}).Warn("Repaired invalid stored entry")
		}
		out = append(out, repaired)
	}
	return out, nil
}

// storedEntryID names an entry stored without an id. It is derived from the
// entry so every read of the same value agrees until a write persists it.
func storedEntryID(index int, e catalog.Entry) string {
	data, _ := json.Marshal(e)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d:%s", index, data))).String()
}

func (s *CatalogStore) write(ctx context.Context, all catalog.Collection) error {
	if all == nil {
		all = catalog.Collection{}
	}
	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return s.kv.Put(ctx, s.key, data)
}

func (s *CatalogStore) fail(op string, err error) error {
	perr := &catalog.PersistenceError{Op: op, Err: err}
	s.logger.WithFields(logrus.Fields{
		"op":  op,
		"key": s.key,
	}).WithError(perr).Error("Catalog persistence failed")
	s.metrics.StoreFailure(op)
	return perr
}
