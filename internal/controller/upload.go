package controller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/treefix50/reelshelf/internal/catalog"
)

// Upload is a file plus the form fields that describe it.
type Upload struct {
	Path        string
	Title       string
	Description string
	Genres      []string
	Rating      float64
}

func (u Upload) validate() (title string, genres []string, err error) {
	title, err = catalog.ValidateTitle(u.Title)
	if err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(u.Path) == "" {
		return "", nil, &catalog.ValidationError{Field: "file", Err: catalog.ErrFileRequired}
	}
	genres, err = catalog.NormalizeGenres(u.Genres)
	if err != nil {
		return "", nil, err
	}
	if err := catalog.ValidateRating(u.Rating); err != nil {
		return "", nil, err
	}
	return title, genres, nil
}

// CreateFromUpload validates u, probes the file and adds a new entry.
// Validation failures return a *catalog.ValidationError and probe failures a
// *catalog.ProbeError; in both cases nothing is stored.
func (c *Controller) CreateFromUpload(ctx context.Context, u Upload) (catalog.Entry, error) {
	title, genres, err := u.validate()
	if err != nil {
		c.metrics.Upload("invalid")
		return catalog.Entry{}, err
	}

	ref, err := c.media.Open(u.Path)
	if err != nil {
		c.metrics.Upload("invalid")
		return catalog.Entry{}, &catalog.ValidationError{Field: "file", Err: err}
	}

	duration, err := c.probe(ctx, ref)
	if err != nil {
		c.media.Release(ref)
		c.metrics.Upload("probe_failed")
		c.logger.WithFields(logrus.Fields{
			"path": u.Path,
			"ref":  ref,
		}).WithError(err).Warn("Upload aborted")
		return catalog.Entry{}, err
	}

	fingerprint, err := c.media.Fingerprint(ref)
	if err != nil {
		// relink then accepts any file for this entry
		c.logger.WithField("path", u.Path).WithError(err).Warn("Could not fingerprint upload")
	}

	entry := catalog.Entry{
		ID:              c.newID(),
		Title:           title,
		Description:     strings.TrimSpace(u.Description),
		MediaRef:        ref,
		DurationSeconds: duration,
		UploadedAt:      c.now().UTC(),
		Genres:          genres,
		Rating:          u.Rating,
		Fingerprint:     fingerprint,
	}

	c.mu.Lock()
	c.store.Append(context.WithoutCancel(ctx), entry)
	c.mirror = c.mirror.Append(entry)
	n := len(c.mirror)
	c.mu.Unlock()

	c.metrics.Upload("created")
	c.metrics.SetEntries(n)
	c.logger.WithFields(logrus.Fields{
		"id":       entry.ID,
		"title":    entry.Title,
		"duration": entry.DurationSeconds,
	}).Info("Entry created")
	return entry.Clone(), nil
}

// probe waits for the duration of ref, at most probeTimeout.
func (c *Controller) probe(ctx context.Context, ref string) (float64, error) {
	if c.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.probeTimeout)
		defer cancel()
	}

	type result struct {
		seconds float64
		err     error
	}
	done := make(chan result, 1)
	go func() {
		seconds, err := c.media.Duration(ctx, ref)
		done <- result{seconds, err}
	}()

	select {
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = catalog.ErrProbeStuck
		}
		return 0, &catalog.ProbeError{Ref: ref, Err: err}
	case r := <-done:
		if r.err != nil {
			return 0, &catalog.ProbeError{Ref: ref, Err: r.err}
		}
		if math.IsNaN(r.seconds) || math.IsInf(r.seconds, 0) || r.seconds < 0 {
			return 0, &catalog.ProbeError{Ref: ref, Err: fmt.Errorf("unusable duration %v", r.seconds)}
		}
		return r.seconds, nil
	}
}

// UploadTask is a CreateFromUpload running in the background.
type UploadTask struct {
	done  chan struct{}
	entry catalog.Entry
	err   error
}

// StartUpload runs CreateFromUpload without blocking the caller.
func (c *Controller) StartUpload(ctx context.Context, u Upload) *UploadTask {
	task := &UploadTask{done: make(chan struct{})}
	go func() {
		defer close(task.done)
		task.entry, task.err = c.CreateFromUpload(ctx, u)
	}()
	return task
}

// Done is closed once the upload has finished.
func (t *UploadTask) Done() <-chan struct{} { return t.done }

// Result waits for the upload and returns its outcome.
func (t *UploadTask) Result() (catalog.Entry, error) {
	<-t.done
	return t.entry, t.err
}

// Relink gives id a fresh media reference for path. The file must be the
// one originally uploaded, judged by its fingerprint.
func (c *Controller) Relink(ctx context.Context, id, path string) (catalog.Entry, error) {
	current, err := c.Get(id)
	if err != nil {
		return catalog.Entry{}, err
	}
	if strings.TrimSpace(path) == "" {
		return catalog.Entry{}, &catalog.ValidationError{Field: "file", Err: catalog.ErrFileRequired}
	}

	ref, err := c.media.Open(path)
	if err != nil {
		return catalog.Entry{}, &catalog.ValidationError{Field: "file", Err: err}
	}
	if current.Fingerprint != "" {
		fp, err := c.media.Fingerprint(ref)
		if err != nil {
			c.media.Release(ref)
			return catalog.Entry{}, &catalog.ValidationError{Field: "file", Err: err}
		}
		if fp != current.Fingerprint {
			c.media.Release(ref)
			return catalog.Entry{}, &catalog.ValidationError{Field: "file", Err: catalog.ErrFingerprintMismatch}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.mirror.Find(id); !ok {
		// deleted while the file was checked
		c.media.Release(ref)
		return catalog.Entry{}, catalog.ErrNotFound
	}
	c.store.UpdateMediaRef(context.WithoutCancel(ctx), id, ref)
	c.mirror, _ = c.mirror.WithMediaRef(id, ref)
	if current.MediaRef != ref {
		c.media.Release(current.MediaRef)
	}

	updated, _ := c.mirror.Find(id)
	c.logger.WithFields(logrus.Fields{
		"id":  id,
		"ref": ref,
	}).Info("Entry relinked")
	return updated.Clone(), nil
}
