// Package thumbnail extracts a preview frame with ffmpeg and scales it down
// with imaging.
package thumbnail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"clipress/internal/encoding"
)

const (
	DefaultSize    = 320
	DefaultQuality = 85
	defaultTimeout = 60 * time.Second
)

// Generator produces JPEG thumbnails for compressed videos.
type Generator struct {
	Runner  *encoding.Runner
	Size    int
	Quality int
	Timeout time.Duration
}

// New returns a Generator driving ffmpeg through runner.
func New(runner *encoding.Runner, size, quality int) *Generator {
	return &Generator{Runner: runner, Size: size, Quality: quality, Timeout: defaultTimeout}
}

// Generate grabs the frame at the middle of the video and writes a resized
// JPEG to output.
func (g *Generator) Generate(ctx context.Context, video, output string, durationSeconds float64) error {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	frame := filepath.Join(filepath.Dir(output), "."+filepath.Base(output)+".frame.jpg")
	defer os.Remove(frame)

	if _, err := g.Runner.Run(ctx, encoding.ThumbnailArgs(video, frame, durationSeconds/2), nil); err != nil {
		return fmt.Errorf("extract frame: %w", err)
	}
	return Resize(frame, output, g.Size, g.Quality)
}

// Resize fits src within a size x size box and saves it as JPEG.
func Resize(src, dst string, size, quality int) error {
	if size <= 0 {
		size = DefaultSize
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("open frame: %w", err)
	}
	thumb := imaging.Fit(img, size, size, imaging.Lanczos)
	if err := imaging.Save(thumb, dst, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("save thumbnail: %w", err)
	}
	return nil
}
