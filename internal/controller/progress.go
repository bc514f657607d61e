package controller

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/treefix50/reelshelf/internal/metrics"
)

// progressWriter moves watch times from the mirror to the store off the
// caller's path. It keeps only the latest value per entry and drains one
// batch at a time, so a later drain always carries a later-emitted value
// and an older write can never land after a newer one.
type progressWriter struct {
	store   Store
	limiter *rate.Limiter
	logger  *logrus.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending map[string]float64

	drainMu sync.Mutex
	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
}

func newProgressWriter(store Store, perSecond float64, logger *logrus.Logger, m *metrics.Metrics) *progressWriter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &progressWriter{
		store:   store,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		metrics: m,
		pending: make(map[string]float64),
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go w.run()
	return w
}

// enqueue records the newest watch time for id. It never blocks.
func (w *progressWriter) enqueue(id string, seconds float64) {
	w.mu.Lock()
	w.pending[id] = seconds
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// forget drops a pending value, used when the entry is deleted.
func (w *progressWriter) forget(id string) {
	w.mu.Lock()
	delete(w.pending, id)
	w.mu.Unlock()
}

// flush writes everything pending before it returns.
func (w *progressWriter) flush(ctx context.Context) {
	w.drain(ctx)
}

func (w *progressWriter) close(ctx context.Context) {
	w.once.Do(func() {
		w.cancel()
		<-w.stopped
		w.drain(context.WithoutCancel(ctx))
	})
}

func (w *progressWriter) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.wake:
		}
		if err := w.limiter.Wait(w.ctx); err != nil {
			return
		}
		// a drain that has started always completes
		w.drain(context.Background())
	}
}

func (w *progressWriter) drain(ctx context.Context) {
	w.drainMu.Lock()
	defer w.drainMu.Unlock()

	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.pending
	w.pending = make(map[string]float64, len(batch))
	w.mu.Unlock()

	failed := make(map[string]float64)
	for id, seconds := range batch {
		if err := w.store.UpdateWatchTime(ctx, id, seconds); err != nil {
			failed[id] = seconds
			continue
		}
		w.metrics.ProgressWrite()
	}
	if len(failed) > 0 {
		w.retry(failed)
	}
	w.logger.WithFields(logrus.Fields{
		"entries": len(batch) - len(failed),
		"failed":  len(failed),
	}).Debug("Progress written")
}

// retry puts failed values back unless a newer one was queued meanwhile.
// They go out with the next drain.
func (w *progressWriter) retry(failed map[string]float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, seconds := range failed {
		if _, newer := w.pending[id]; !newer {
			w.pending[id] = seconds
		}
	}
}
