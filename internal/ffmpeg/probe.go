package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Prober reads container metadata with ffprobe.
type Prober struct {
	Path string
}

// VideoInfo is what the catalog needs to know about a video file.
type VideoInfo struct {
	Path     string
	Duration float64
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// Duration returns the length of the file in seconds. It satisfies the
// media package's duration probe.
func (p Prober) Duration(ctx context.Context, path string) (float64, error) {
	info, err := p.Info(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

// Info runs ffprobe on path. The command is killed when ctx ends.
func (p Prober) Info(ctx context.Context, path string) (*VideoInfo, error) {
	if p.Path == "" {
		return nil, fmt.Errorf("ffprobe path is empty")
	}
	if path == "" {
		return nil, fmt.Errorf("video path is required")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, p.Path, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	info, err := parseProbeOutput(output)
	if err != nil {
		return nil, err
	}
	info.Path = path
	return info, nil
}

func parseProbeOutput(output []byte) (*VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	duration, ok := parseSeconds(out.Format.Duration)
	for _, s := range out.Streams {
		if ok {
			break
		}
		if s.CodecType == "video" {
			// some containers only report it per stream
			duration, ok = parseSeconds(s.Duration)
		}
	}
	if !ok {
		return nil, fmt.Errorf("ffprobe reported no duration")
	}
	return &VideoInfo{Duration: duration}, nil
}

func parseSeconds(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == "N/A" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}
