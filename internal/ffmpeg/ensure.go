package ffmpeg

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ErrNotFound is returned when no ffprobe binary can be located.
var ErrNotFound = errors.New("ffprobe not found in PATH or tools directory")

// Locate finds the ffprobe binary. An explicit path wins, then
// REELSHELF_FFPROBE, then PATH, then <baseDir>/tools/ffmpeg.
func Locate(explicit, baseDir string) (string, error) {
	if explicit != "" {
		if fileExists(explicit) {
			return explicit, nil
		}
		if p, err := exec.LookPath(explicit); err == nil {
			return p, nil
		}
		return "", ErrNotFound
	}
	if p := os.Getenv("REELSHELF_FFPROBE"); p != "" && fileExists(p) {
		return p, nil
	}
	if p, err := exec.LookPath(exe("ffprobe")); err == nil {
		return p, nil
	}
	local := filepath.Join(baseDir, "tools", "ffmpeg", exe("ffprobe"))
	if fileExists(local) {
		return local, nil
	}
	return "", ErrNotFound
}

func exe(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
