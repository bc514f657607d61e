package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/treefix50/reelshelf/internal/catalog"
	"github.com/treefix50/reelshelf/internal/storage"
)

type fixture struct {
	cfgPath string
	dbPath  string
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		cfgPath: filepath.Join(dir, "config.yaml"),
		dbPath:  filepath.Join(dir, "reelshelf.db"),
		dir:     dir,
	}
	body := fmt.Sprintf(`
storage:
  backend: sqlite
  path: %s
media:
  upload_dir: %s
  ffprobe_path: %s
log:
  level: error
`, f.dbPath, filepath.Join(dir, "uploads"), filepath.Join(dir, "no-ffprobe"))
	if err := os.WriteFile(f.cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *fixture) seed(t *testing.T, entries ...catalog.Entry) {
	t.Helper()
	db, err := storage.Open(f.dbPath, storage.Options{BusyTimeout: time.Second})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	l := logrus.New()
	l.SetOutput(io.Discard)
	store := storage.NewCatalogStore(db, storage.CatalogStoreConfig{Logger: l})
	for _, e := range entries {
		store.Append(context.Background(), e)
	}
}

func (f *fixture) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", f.cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sample(id, title string, genres ...string) catalog.Entry {
	return catalog.Entry{
		ID:               id,
		Title:            title,
		MediaRef:         "/media/" + id,
		DurationSeconds:  1500,
		UploadedAt:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Genres:           genres,
		Rating:           8.5,
		WatchTimeSeconds: 300,
	}
}

func TestListAndDelete(t *testing.T) {
	f := newFixture(t)
	f.seed(t, sample("a", "Pilot", "Action"), sample("b", "Finale", "Romance"))

	out, err := f.run(t, "", "list")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out, "Pilot") || !strings.Contains(out, "Finale") || !strings.Contains(out, "5:00 (20%)") {
		t.Fatalf("list output = %q", out)
	}

	out, err = f.run(t, "", "list", "-q", "romance", "-o", "json")
	if err != nil {
		t.Fatalf("list -o json error = %v", err)
	}
	var listed []catalog.Entry
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list output %q: %v", out, err)
	}
	if len(listed) != 1 || listed[0].ID != "b" {
		t.Fatalf("filtered list = %+v", listed)
	}

	out, err = f.run(t, "n\n", "delete", "a")
	if err != nil || !strings.Contains(out, "Cancelled") {
		t.Fatalf("delete declined = %q, %v", out, err)
	}

	if _, err := f.run(t, "", "delete", "a", "--yes"); err != nil {
		t.Fatalf("delete --yes error = %v", err)
	}
	if _, err := f.run(t, "", "delete", "a", "--yes"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("second delete error = %v, want ErrNotFound", err)
	}

	out, _ = f.run(t, "", "list", "-o", "yaml")
	if strings.Contains(out, "Pilot") || !strings.Contains(out, "title: Finale") {
		t.Fatalf("list after delete = %q", out)
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	if _, err := f.run(t, "", "add", filepath.Join(f.dir, "ep1.mp4")); !catalog.IsValidation(err) {
		t.Fatalf("add without title error = %v, want validation error", err)
	}

	notes := filepath.Join(f.dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := f.run(t, "", "add", notes, "--title", "Notes"); !errors.Is(err, catalog.ErrNotVideo) {
		t.Fatalf("add notes.txt error = %v, want ErrNotVideo", err)
	}
}

func TestGenresAndConfigShow(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "", "genres")
	if err != nil {
		t.Fatalf("genres error = %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != len(catalog.Genres) {
		t.Fatalf("genres printed %d lines", len(lines))
	}

	out, err = f.run(t, "", "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "backend: sqlite") || !strings.Contains(out, "key: video_catalog") {
		t.Fatalf("config show = %q", out)
	}

	out, err = f.run(t, "", "--storage-backend", "file", "config", "show")
	if err != nil || !strings.Contains(out, "backend: file") {
		t.Fatalf("flag override = %q, %v", out, err)
	}
}

func TestDBCommands(t *testing.T) {
	f := newFixture(t)
	f.seed(t, sample("a", "Pilot"))

	out, err := f.run(t, "", "db", "check")
	if err != nil || strings.TrimSpace(out) != "ok" {
		t.Fatalf("db check = %q, %v", out, err)
	}

	copyPath := filepath.Join(f.dir, "copy.db")
	if _, err := f.run(t, "", "db", "vacuum", "--into", copyPath); err != nil {
		t.Fatalf("db vacuum error = %v", err)
	}
	if _, err := os.Stat(copyPath); err != nil {
		t.Fatalf("vacuum copy missing: %v", err)
	}

	if _, err := f.run(t, "", "--storage-backend", "file", "db", "check"); !errors.Is(err, errNotSQLite) {
		t.Fatalf("db check on file backend error = %v", err)
	}
}
