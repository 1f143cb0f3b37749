package ffprobe

import (
	"context"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single probe invocation.
const DefaultTimeout = 30 * time.Second

// MediaInfo is a read-only snapshot of a probed media file.
type MediaInfo struct {
	DurationSeconds float64    `json:"duration_seconds"`
	SizeBytes       int64      `json:"size_bytes"`
	FormatName      string     `json:"format_name"`
	BitRate         int64      `json:"bit_rate,omitempty"`
	Video           *VideoInfo `json:"video,omitempty"`
	Audio           *AudioInfo `json:"audio,omitempty"`
}

// VideoInfo describes the first video stream.
type VideoInfo struct {
	Codec     string  `json:"codec"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frame_rate"`
	BitRate   int64   `json:"bit_rate,omitempty"`
}

// AudioInfo describes the first audio stream.
type AudioInfo struct {
	Codec      string `json:"codec"`
	BitRate    int64  `json:"bit_rate,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// Pixels returns width*height of the video stream, or 0 without video.
func (m MediaInfo) Pixels() int {
	if m.Video == nil {
		return 0
	}
	return m.Video.Width * m.Video.Height
}

// Height returns the video height, or 0 without video.
func (m MediaInfo) Height() int {
	if m.Video == nil {
		return 0
	}
	return m.Video.Height
}

// Prober runs ffprobe with a bounded timeout.
type Prober struct {
	Binary  string
	Timeout time.Duration
}

// NewProber returns a Prober for the given binary with the default timeout.
func NewProber(binary string) *Prober {
	return &Prober{Binary: binary, Timeout: DefaultTimeout}
}

// Probe inspects path and reduces the output to a MediaInfo snapshot.
func (p *Prober) Probe(ctx context.Context, path string) (MediaInfo, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := Inspect(probeCtx, p.Binary, path)
	if err != nil {
		return MediaInfo{}, err
	}
	info := FromResult(result)
	if stat, err := os.Stat(path); err == nil && !stat.IsDir() {
		info.SizeBytes = stat.Size()
	}
	return info, nil
}

// FromResult selects the first video and audio streams of a Result.
func FromResult(result Result) MediaInfo {
	duration := result.DurationSeconds()
	if math.IsNaN(duration) || duration < 0 {
		duration = 0
	}
	info := MediaInfo{
		DurationSeconds: duration,
		SizeBytes:       result.SizeBytes(),
		FormatName:      strings.TrimSpace(result.Format.FormatName),
		BitRate:         result.BitRate(),
	}
	if stream, ok := result.FirstStream("video"); ok {
		rate := stream.AvgFrameRate
		if ParseFrameRate(rate) == 0 {
			rate = stream.RFrameRate
		}
		info.Video = &VideoInfo{
			Codec:     stream.CodecName,
			Width:     stream.Width,
			Height:    stream.Height,
			FrameRate: ParseFrameRate(rate),
			BitRate:   nonNegativeInt(stream.BitRate),
		}
	}
	if stream, ok := result.FirstStream("audio"); ok {
		sampleRate, _ := strconv.Atoi(strings.TrimSpace(stream.SampleRate))
		info.Audio = &AudioInfo{
			Codec:      stream.CodecName,
			BitRate:    nonNegativeInt(stream.BitRate),
			SampleRate: sampleRate,
			Channels:   stream.Channels,
		}
	}
	return info
}

// ParseFrameRate converts "num/den" (or a plain number) to frames per second.
// A zero denominator or malformed value yields 0.
func ParseFrameRate(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	num, den, found := strings.Cut(value, "/")
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil || d == 0 || math.IsNaN(d) {
		return 0
	}
	return n / d
}
