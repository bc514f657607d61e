package ffmpeg

import (
	"context"
	"errors"
	"testing"
)

const sampleProbe = `{
	"streams": [
		{"index": 0, "codec_name": "aac", "codec_type": "audio", "duration": "1499.9"},
		{"index": 1, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "duration": "1500.0"}
	],
	"format": {"filename": "ep1.mp4", "duration": "1500.021333"}
}`

func TestParseProbeOutput(t *testing.T) {
	info, err := parseProbeOutput([]byte(sampleProbe))
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}
	if info.Duration != 1500.021333 {
		t.Fatalf("duration = %v", info.Duration)
	}
}

func TestParseProbeOutputStreamDurationFallback(t *testing.T) {
	out := `{"streams":[{"codec_type":"video","codec_name":"vp9","duration":"12.5"}],"format":{"duration":"N/A"}}`
	info, err := parseProbeOutput([]byte(out))
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}
	if info.Duration != 12.5 {
		t.Fatalf("duration = %v, want 12.5", info.Duration)
	}
}

func TestParseProbeOutputIgnoresAudioDuration(t *testing.T) {
	out := `{"streams":[{"codec_type":"audio","duration":"99"},{"codec_type":"video","duration":"12.5"}],"format":{}}`
	info, err := parseProbeOutput([]byte(out))
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}
	if info.Duration != 12.5 {
		t.Fatalf("duration = %v, want the video stream's 12.5", info.Duration)
	}
}

func TestParseProbeOutputErrors(t *testing.T) {
	for _, out := range []string{`not json`, `{"format":{}}`, `{"format":{"duration":"-3"}}`} {
		if _, err := parseProbeOutput([]byte(out)); err == nil {
			t.Fatalf("parseProbeOutput(%q) expected error", out)
		}
	}
}

func TestProberRequiresPath(t *testing.T) {
	if _, err := (Prober{}).Duration(context.Background(), "x.mp4"); err == nil {
		t.Fatalf("expected error for empty ffprobe path")
	}
}

func TestLocateExplicitMissing(t *testing.T) {
	if _, err := Locate("/definitely/not/here/ffprobe", t.TempDir()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Locate() error = %v, want ErrNotFound", err)
	}
}
