// Package media stands in for the browser's media subsystem: it hands out
// playable references for local files and answers duration queries.
//
// References live only as long as the Registry. A catalog entry persisted by
// an earlier process keeps a reference nobody can resolve any more until its
// file is supplied again.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/treefix50/reelshelf/internal/catalog"
)

// RefPrefix starts every reference so it can be used directly as a URL path.
const RefPrefix = "/media/"

var ErrUnknownRef = errors.New("media reference is not valid in this session")

var videoExtensions = map[string]bool{
	".avi":  true,
	".m2ts": true,
	".m4v":  true,
	".mkv":  true,
	".mov":  true,
	".mp4":  true,
	".ts":   true,
	".webm": true,
}

// IsVideo reports whether name has a known video extension.
func IsVideo(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

// DurationProber reads the intrinsic duration of a media file.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Options configures a Registry.
type Options struct {
	// UploadDir holds files the registry owns. They are renamed to their
	// fingerprint when opened, so the same content is kept once, and removed
	// when no reference and no entry needs them any more.
	UploadDir string
	Logger    *logrus.Logger
}

type Registry struct {
	mu     sync.RWMutex
	paths  map[string]string
	prober DurationProber
	owned  string
	logger *logrus.Logger
}

func NewRegistry(prober DurationProber, opts Options) (*Registry, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	r := &Registry{
		paths:  make(map[string]string),
		prober: prober,
		logger: opts.Logger,
	}
	if opts.UploadDir != "" {
		if err := os.MkdirAll(opts.UploadDir, 0o755); err != nil {
			return nil, fmt.Errorf("media: upload dir: %w", err)
		}
		abs, err := filepath.Abs(opts.UploadDir)
		if err != nil {
			return nil, err
		}
		r.owned = abs
	}
	return r, nil
}

// Open registers path and returns a fresh reference for it.
func (r *Registry) Open(path string) (string, error) {
	if !IsVideo(path) {
		return "", fmt.Errorf("%w: %s", catalog.ErrNotVideo, filepath.Base(path))
	}
	st, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("open media: %w", err)
	}
	if st.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", catalog.ErrNotVideo, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	var content string
	if r.owns(abs) {
		// hashed before locking; nobody else knows the upload's name yet
		if content, err = r.contentPath(abs); err != nil {
			return "", err
		}
	}

	ref := RefPrefix + uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	if content != "" && content != abs {
		if _, err := os.Stat(content); err == nil {
			// same video is already stored
			if err := os.Remove(abs); err != nil {
				return "", fmt.Errorf("open media: %w", err)
			}
		} else if err := os.Rename(abs, content); err != nil {
			return "", fmt.Errorf("open media: %w", err)
		}
		abs = content
	}
	r.paths[ref] = abs
	return ref, nil
}

// Release forgets ref. An owned file goes with its last reference.
// Releasing an unknown reference does nothing.
func (r *Registry) Release(ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path, ok := r.paths[ref]
	if !ok {
		return
	}
	delete(r.paths, ref)
	if r.owns(path) && !r.inUseLocked(path) {
		r.remove(path)
	}
}

// Discard removes the owned file with the given content fingerprint unless a
// live reference still points at it. It cleans up after entries whose
// reference died with an earlier process.
func (r *Registry) Discard(fingerprint string) {
	if r.owned == "" || !isFingerprint(fingerprint) {
		return
	}
	matches, err := filepath.Glob(filepath.Join(r.owned, fingerprint+".*"))
	if err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, path := range matches {
		if !r.inUseLocked(path) {
			r.remove(path)
		}
	}
}

func (r *Registry) owns(path string) bool {
	return r.owned != "" && filepath.Dir(path) == r.owned
}

func (r *Registry) inUseLocked(path string) bool {
	for _, p := range r.paths {
		if p == path {
			return true
		}
	}
	return false
}

func (r *Registry) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.WithField("path", path).WithError(err).Warn("Could not remove media file")
		return
	}
	r.logger.WithField("path", path).Debug("Media file removed")
}

// contentPath is where an owned file lives once named by its fingerprint.
func (r *Registry) contentPath(path string) (string, error) {
	fp, err := Fingerprint(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.owned, fp+strings.ToLower(filepath.Ext(path))), nil
}

func isFingerprint(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}

// Resolve returns the file behind ref.
func (r *Registry) Resolve(ref string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.paths[ref]
	return p, ok
}

// Duration probes the file behind ref.
func (r *Registry) Duration(ctx context.Context, ref string) (float64, error) {
	path, ok := r.Resolve(ref)
	if !ok {
		return 0, ErrUnknownRef
	}
	if r.prober == nil {
		return 0, errors.New("no duration prober configured")
	}
	return r.prober.Duration(ctx, path)
}

// Fingerprint hashes the file behind ref.
func (r *Registry) Fingerprint(ref string) (string, error) {
	path, ok := r.Resolve(ref)
	if !ok {
		return "", ErrUnknownRef
	}
	return Fingerprint(path)
}

// Len returns the number of live references.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.paths)
}
