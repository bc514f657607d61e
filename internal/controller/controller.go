// Package controller owns the in-memory catalog and turns user intents into
// store updates. Nothing else writes to the store.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/treefix50/reelshelf/internal/catalog"
	"github.com/treefix50/reelshelf/internal/metrics"
)

// Store is the durable side of the catalog. Implementations swallow and log
// their own failures; UpdateWatchTime still reports them so the progress
// writer can try again.
type Store interface {
	LoadAll(ctx context.Context) catalog.Collection
	Append(ctx context.Context, entry catalog.Entry)
	UpdateWatchTime(ctx context.Context, id string, seconds float64) error
	UpdateMediaRef(ctx context.Context, id, ref string)
	Remove(ctx context.Context, id string)
}

// MediaSource hands out playable references for files and answers
// questions about them.
type MediaSource interface {
	Open(path string) (string, error)
	Duration(ctx context.Context, ref string) (float64, error)
	Fingerprint(ref string) (string, error)
	Release(ref string)
	// Discard drops stored media with the given fingerprint that no live
	// reference uses.
	Discard(fingerprint string)
}

const DefaultProbeTimeout = 5 * time.Second

type Options struct {
	// ProbeTimeout bounds the wait for a file's duration. Negative disables
	// the bound.
	ProbeTimeout       time.Duration
	FlushPerSecond     float64
	SessionIdleTimeout time.Duration
	Logger             *logrus.Logger
	Metrics            *metrics.Metrics

	Now   func() time.Time
	NewID func() string
}

type Controller struct {
	mu     sync.RWMutex
	mirror catalog.Collection

	store        Store
	media        MediaSource
	probeTimeout time.Duration
	now          func() time.Time
	newID        func() string
	logger       *logrus.Logger
	metrics      *metrics.Metrics

	sessions *sessionTable
	writer   *progressWriter
}

func New(store Store, media MediaSource, opts Options) *Controller {
	if opts.ProbeTimeout == 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &Controller{
		mirror:       catalog.Collection{},
		store:        store,
		media:        media,
		probeTimeout: opts.ProbeTimeout,
		now:          opts.Now,
		newID:        opts.NewID,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		sessions:     newSessionTable(opts.SessionIdleTimeout, opts.Now, opts.Metrics),
		writer:       newProgressWriter(store, opts.FlushPerSecond, opts.Logger, opts.Metrics),
	}
}

// Initialize loads the catalog into the mirror and returns a copy of it.
func (c *Controller) Initialize(ctx context.Context) catalog.Collection {
	all := c.store.LoadAll(ctx)

	c.mu.Lock()
	c.mirror = all.Clone()
	c.mu.Unlock()
	c.sessions.clear()

	c.metrics.SetEntries(len(all))
	c.logger.WithField("entries", len(all)).Info("Catalog loaded")
	return all
}

// Entries returns a copy of the mirror in upload order.
func (c *Controller) Entries() catalog.Collection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mirror.Clone()
}

// Get returns one entry of the mirror.
func (c *Controller) Get(id string) (catalog.Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.mirror.Find(id)
	if !ok {
		return catalog.Entry{}, catalog.ErrNotFound
	}
	return e.Clone(), nil
}

// Visible is the mirror filtered by query.
func (c *Controller) Visible(query string) []catalog.Entry {
	return catalog.ApplyFilter(c.Entries(), query)
}

// Home is the first page of the filtered catalog.
func (c *Controller) Home(query string) []catalog.Entry {
	return catalog.Project(c.Visible(query), catalog.ViewHome)
}

// Library is the whole filtered catalog.
func (c *Controller) Library(query string) []catalog.Entry {
	return catalog.Project(c.Visible(query), catalog.ViewLibrary)
}

// RecordProgress stores the play position of id, clamped to the entry's
// duration. Unknown ids are ignored. The store write happens later on the
// progress writer; the mirror changes immediately.
func (c *Controller) RecordProgress(id string, seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recordProgressLocked(id, seconds)
}

func (c *Controller) recordProgressLocked(id string, seconds float64) bool {
	for i := range c.mirror {
		if c.mirror[i].ID != id {
			continue
		}
		clamped := c.mirror[i].ClampWatchTime(seconds)
		c.mirror[i].WatchTimeSeconds = clamped
		c.writer.enqueue(id, clamped)
		return true
	}
	return false
}

// OpenSession starts a player for id. A session already open for the same
// entry stops being applied.
func (c *Controller) OpenSession(id string) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.mirror.Find(id)
	if !ok {
		return Session{}, catalog.ErrNotFound
	}
	token := uuid.NewString()
	c.sessions.open(id, token)

	c.logger.WithFields(logrus.Fields{
		"id":     id,
		"resume": e.WatchTimeSeconds,
	}).Debug("Player session opened")
	return Session{Token: token, EntryID: id, ResumeSeconds: e.WatchTimeSeconds}, nil
}

// RecordTick applies a time update from a player session. Ticks of closed or
// superseded sessions, and ticks not newer than the last applied one, fail
// with catalog.ErrStaleTick.
func (c *Controller) RecordTick(token string, seq uint64, seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.sessions.accept(token, seq)
	if err != nil {
		c.metrics.TickRejected()
		return err
	}
	if !c.recordProgressLocked(id, seconds) {
		c.sessions.closeEntry(id)
		c.metrics.TickRejected()
		return catalog.ErrStaleTick
	}
	c.metrics.TickApplied()
	return nil
}

// CloseSession stops applying ticks from token and writes the final
// position. The write is not cut short by ctx. Unknown tokens are ignored.
func (c *Controller) CloseSession(ctx context.Context, token string) {
	if id, ok := c.sessions.close(token); ok {
		c.logger.WithField("id", id).Debug("Player session closed")
	}
	c.writer.flush(context.WithoutCancel(ctx))
}

// DeleteEntry removes id from the store and the mirror. It asks nothing;
// confirming is up to the caller. Deleting an unknown id does nothing.
//
// The store write is not cut short by ctx: once the mirror has dropped the
// entry the store must follow.
func (c *Controller) DeleteEntry(ctx context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.forget(id)
	c.sessions.closeEntry(id)
	c.store.Remove(context.WithoutCancel(ctx), id)

	e, found := c.mirror.Find(id)
	if !found {
		return
	}
	c.mirror, _ = c.mirror.Without(id)
	c.media.Release(e.MediaRef)
	c.media.Discard(e.Fingerprint)
	c.metrics.SetEntries(len(c.mirror))
	c.logger.WithFields(logrus.Fields{
		"id":    id,
		"title": e.Title,
	}).Info("Entry deleted")
}

// Flush writes all pending progress to the store. Values whose write fails
// stay pending.
func (c *Controller) Flush(ctx context.Context) {
	c.writer.flush(ctx)
}

// Close ends every session and writes pending progress. The controller must
// not be used afterwards.
func (c *Controller) Close(ctx context.Context) {
	c.sessions.shutdown()
	c.writer.close(ctx)
}
