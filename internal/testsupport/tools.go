package testsupport

import (
	"fmt"
	"strings"
)

// FakeTools describes the behaviour of scripted ffprobe and ffmpeg binaries.
//
// The fake ffprobe reports a single H.264 video stream of Width x Height and
// DurationSeconds, plus an AAC stream unless NoAudio is set. The fake ffmpeg
// prints a Duration header, one time= line per ProgressSteps, then writes
// OutputBytes bytes to its final argument. HangSeconds makes it sleep after
// the header; ExitCode makes it fail.
type FakeTools struct {
	DurationSeconds float64
	Width           int
	Height          int
	NoAudio         bool
	ProbeExitCode   int
	ProgressSteps   int
	OutputBytes     int
	HangSeconds     int
	IgnoreTerm      bool
	ExitCode        int
	// PIDFile, when set, receives the ffmpeg shell's pid.
	PIDFile string
}

func (f FakeTools) normalized() FakeTools {
	if f.DurationSeconds <= 0 {
		f.DurationSeconds = 10
	}
	if f.Width <= 0 {
		f.Width = 1280
	}
	if f.Height <= 0 {
		f.Height = 720
	}
	if f.ProgressSteps <= 0 {
		f.ProgressSteps = 4
	}
	if f.OutputBytes <= 0 {
		f.OutputBytes = 1024
	}
	return f
}

// ProbeJSON returns the document the fake ffprobe prints.
func (f FakeTools) ProbeJSON() string {
	f = f.normalized()
	streams := []string{fmt.Sprintf(
		`{"index":0,"codec_type":"video","codec_name":"h264","width":%d,"height":%d,"avg_frame_rate":"30/1","r_frame_rate":"30/1","bit_rate":"4000000"}`,
		f.Width, f.Height,
	)}
	if !f.NoAudio {
		streams = append(streams, `{"index":1,"codec_type":"audio","codec_name":"aac","bit_rate":"128000","sample_rate":"48000","channels":2}`)
	}
	return fmt.Sprintf(`{"streams":[%s],"format":{"format_name":"mov,mp4,m4a,3gp,3g2,mj2","duration":"%.3f","bit_rate":"4128000"}}`,
		strings.Join(streams, ","), f.DurationSeconds)
}

func (f FakeTools) ffprobeBody() string {
	f = f.normalized()
	if f.ProbeExitCode != 0 {
		return fmt.Sprintf("echo 'probe failed' >&2\nexit %d\n", f.ProbeExitCode)
	}
	return fmt.Sprintf("cat <<'JSON'\n%s\nJSON\n", f.ProbeJSON())
}

func (f FakeTools) ffmpegBody() string {
	f = f.normalized()
	var b strings.Builder
	if f.PIDFile != "" {
		fmt.Fprintf(&b, "echo $$ > %q\n", f.PIDFile)
	}
	if f.IgnoreTerm {
		b.WriteString("trap '' TERM\n")
	}
	b.WriteString("for last; do :; done\n")
	fmt.Fprintf(&b, "echo '  Duration: %s, start: 0.000000, bitrate: 4128 kb/s' >&2\n", clock(f.DurationSeconds))
	if f.HangSeconds > 0 {
		fmt.Fprintf(&b, "sleep %d\n", f.HangSeconds)
	}
	for i := 1; i <= f.ProgressSteps; i++ {
		at := f.DurationSeconds * float64(i) / float64(f.ProgressSteps+1)
		fmt.Fprintf(&b, "printf 'frame=%d fps=30 q=28.0 size=256kB time=%s bitrate=900kbits/s speed=2.0x\\r' >&2\n", i*30, clock(at))
	}
	if f.ExitCode != 0 {
		fmt.Fprintf(&b, "echo 'Conversion failed!' >&2\nexit %d\n", f.ExitCode)
		return b.String()
	}
	fmt.Fprintf(&b, "head -c %d /dev/zero > \"$last\"\n", f.OutputBytes)
	b.WriteString("exit 0\n")
	return b.String()
}

func clock(seconds float64) string {
	total := int(seconds * 100)
	h := total / 360000
	m := (total / 6000) % 60
	s := (total / 100) % 60
	cs := total % 100
	return fmt.Sprintf("%02d:%02d:%02d.%02d", h, m, s, cs)
}
