package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/treefix50/reelshelf/internal/catalog"
	"github.com/treefix50/reelshelf/internal/controller"
	"github.com/treefix50/reelshelf/internal/media"
)

const multipartMemory = 32 << 20

// POST /entries, multipart: file, title, description, genres (repeated), rating
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if ok, wait := s.limiter.Allow(clientKey(r)); !ok {
		s.metrics.Upload("rate_limited")
		w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		s.writeError(w, "too many uploads", http.StatusTooManyRequests)
		return
	}

	path, err := s.receiveFile(w, r)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}

	rating := catalog.DefaultRating
	if raw := strings.TrimSpace(r.FormValue("rating")); raw != "" {
		rating, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			s.discard(path)
			s.writeCatalogError(w, &catalog.ValidationError{Field: "rating", Err: catalog.ErrInvalidRating})
			return
		}
	}

	entry, err := s.catalog.CreateFromUpload(r.Context(), controller.Upload{
		Path:        path,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Genres:      r.MultipartForm.Value["genres"],
		Rating:      rating,
	})
	if err != nil {
		s.discard(path)
		s.writeCatalogError(w, err)
		return
	}
	writeJSONStatus(w, r, http.StatusCreated, newEntryView(entry))
}

// POST /entries/{id}/relink, multipart: file
func (s *Server) handleRelink(w http.ResponseWriter, r *http.Request, id string) {
	if s.handleOptions(w, r, "POST, OPTIONS") {
		return
	}
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}
	if _, err := s.catalog.Get(id); err != nil {
		s.writeCatalogError(w, err)
		return
	}

	path, err := s.receiveFile(w, r)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	entry, err := s.catalog.Relink(r.Context(), id, path)
	if err != nil {
		s.discard(path)
		s.writeCatalogError(w, err)
		return
	}
	writeJSON(w, r, newEntryView(entry))
}

// receiveFile stores the multipart "file" part in the upload dir and returns
// its path.
func (s *Server) receiveFile(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", &catalog.ValidationError{Field: "file", Err: fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit)}
		}
		return "", &catalog.ValidationError{Field: "file", Err: catalog.ErrFileRequired}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", &catalog.ValidationError{Field: "file", Err: catalog.ErrFileRequired}
	}
	defer file.Close()

	if !acceptableUpload(header.Header.Get("Content-Type")) || !media.IsVideo(header.Filename) {
		return "", &catalog.ValidationError{Field: "file", Err: fmt.Errorf("%w: %s", catalog.ErrNotVideo, header.Filename)}
	}
	return s.save(file, header)
}

func (s *Server) save(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	dest := filepath.Join(s.uploadDir, uuid.NewString()+ext)

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, file); err != nil {
		_ = out.Close()
		s.discard(dest)
		return "", err
	}
	if err := out.Close(); err != nil {
		s.discard(dest)
		return "", err
	}

	s.logger.WithFields(logrus.Fields{
		"file": header.Filename,
		"size": header.Size,
		"path": dest,
	}).Debug("Upload received")
	return dest, nil
}

func (s *Server) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.WithField("path", path).WithError(err).Warn("Could not remove rejected upload")
	}
}
