package ffprobe

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "avg_frame_rate": "30000/1001", "r_frame_rate": "30/1", "bit_rate": "4500000"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2, "bit_rate": "192000"},
    {"index": 2, "codec_name": "h264", "codec_type": "video", "width": 640, "height": 360},
    {"index": 3, "codec_name": "opus", "codec_type": "audio", "sample_rate": "44100", "channels": 6}
  ],
  "format": {"filename": "in.mkv", "nb_streams": 4, "duration": "120.5", "size": "1000", "bit_rate": "5000000", "format_name": "matroska,webm"}
}`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func writeMedia(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.mkv")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	return path
}

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
	if info := FromResult(result); info.DurationSeconds != 0 {
		t.Fatalf("expected unusable duration to clamp to 0, got %v", info.DurationSeconds)
	}
}

func TestParseFrameRate(t *testing.T) {
	cases := map[string]float64{
		"30/1":       30,
		"25":         25,
		"24000/1000": 24,
		"30/0":       0,
		"0/0":        0,
		"":           0,
		"abc/1":      0,
		"30/x":       0,
	}
	for input, want := range cases {
		if got := ParseFrameRate(input); got != want {
			t.Fatalf("ParseFrameRate(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestProbeSelectsFirstStreams(t *testing.T) {
	script := writeScript(t, "cat <<'JSON'\n"+sampleJSON+"\nJSON")
	media := writeMedia(t, 4096)

	info, err := (&Prober{Binary: script, Timeout: 5 * time.Second}).Probe(context.Background(), media)
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if info.DurationSeconds != 120.5 {
		t.Fatalf("unexpected duration %v", info.DurationSeconds)
	}
	if info.SizeBytes != 4096 {
		t.Fatalf("expected size from stat, got %d", info.SizeBytes)
	}
	if info.FormatName != "matroska,webm" {
		t.Fatalf("unexpected format %q", info.FormatName)
	}
	if info.Video == nil || info.Video.Width != 1920 || info.Video.Height != 1080 {
		t.Fatalf("expected first video stream, got %+v", info.Video)
	}
	if math.Abs(info.Video.FrameRate-29.97) > 0.01 {
		t.Fatalf("unexpected frame rate %v", info.Video.FrameRate)
	}
	if info.Audio == nil || info.Audio.Codec != "aac" || info.Audio.SampleRate != 48000 || info.Audio.Channels != 2 {
		t.Fatalf("expected first audio stream, got %+v", info.Audio)
	}
	if info.Pixels() != 1920*1080 {
		t.Fatalf("unexpected pixel count %d", info.Pixels())
	}
}

func TestProbeWithoutAudio(t *testing.T) {
	script := writeScript(t, `echo '{"streams":[{"codec_type":"video","codec_name":"h264","width":320,"height":240,"r_frame_rate":"25/0"}],"format":{"duration":"3","format_name":"mp4"}}'`)
	info, err := (&Prober{Binary: script}).Probe(context.Background(), writeMedia(t, 10))
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if info.Audio != nil {
		t.Fatalf("expected no audio, got %+v", info.Audio)
	}
	if info.Video == nil || info.Video.FrameRate != 0 {
		t.Fatalf("expected zero frame rate for zero denominator, got %+v", info.Video)
	}
}

func TestProbeErrors(t *testing.T) {
	media := writeMedia(t, 10)
	cases := []struct {
		name   string
		binary string
		kind   ErrorKind
	}{
		{"missing tool", filepath.Join(t.TempDir(), "no-such-ffprobe"), KindToolNotFound},
		{"malformed", writeScript(t, "echo 'not json'"), KindMalformedOutput},
		{"empty document", writeScript(t, "echo '{}'"), KindMalformedOutput},
		{"non-zero exit", writeScript(t, "echo 'Invalid data found' >&2; exit 3"), KindNonZeroExit},
	}
	for _, tc := range cases {
		_, err := (&Prober{Binary: tc.binary, Timeout: 5 * time.Second}).Probe(context.Background(), media)
		var probeErr *ProbeError
		if !errors.As(err, &probeErr) {
			t.Fatalf("%s: expected ProbeError, got %v", tc.name, err)
		}
		if probeErr.Kind != tc.kind {
			t.Fatalf("%s: kind = %s, want %s", tc.name, probeErr.Kind, tc.kind)
		}
		if tc.kind == KindNonZeroExit {
			if probeErr.ExitCode != 3 || probeErr.Stderr != "Invalid data found" {
				t.Fatalf("unexpected exit details: %+v", probeErr)
			}
		}
	}
}

func TestProbeTimeout(t *testing.T) {
	script := writeScript(t, "exec sleep 5")
	start := time.Now()
	_, err := (&Prober{Binary: script, Timeout: 100 * time.Millisecond}).Probe(context.Background(), writeMedia(t, 10))
	var probeErr *ProbeError
	if !errors.As(err, &probeErr) || probeErr.Kind != KindTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Fatalf("probe did not honour timeout, took %s", elapsed)
	}
	if probeErr.ErrorKind() != "probe_timeout" {
		t.Fatalf("unexpected classifier kind %q", probeErr.ErrorKind())
	}
}
