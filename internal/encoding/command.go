package encoding

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"clipress/internal/settings"
)

const (
	videoCodec = "libx264"
	audioCodec = "aac"
)

// ErrSamePath is returned when the output would overwrite the input.
var ErrSamePath = errors.New("encoding: input and output paths must differ")

// BuildArgs returns the ffmpeg argument list (without the binary) that
// compresses input into output under s.
func BuildArgs(input, output string, s settings.JobSettings) ([]string, error) {
	if strings.TrimSpace(input) == "" || strings.TrimSpace(output) == "" {
		return nil, errors.New("encoding: input and output paths are required")
	}
	if samePath(input, output) {
		return nil, fmt.Errorf("%w: %s", ErrSamePath, input)
	}
	if err := settings.Validate(s); err != nil {
		return nil, err
	}

	args := []string{
		"-hide_banner", "-nostdin",
		"-i", input,
		"-c:v", videoCodec,
		"-preset", s.Preset.EncoderPreset(),
		"-crf", strconv.Itoa(s.Preset.CRF()),
	}
	if width, height, ok := s.Resolution.Dimensions(); ok {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", width, height))
	}
	if s.VideoBitrate != settings.VideoAuto {
		args = append(args, "-b:v", string(s.VideoBitrate))
	}
	if s.RemoveAudio {
		args = append(args, "-an")
	} else {
		args = append(args, "-c:a", audioCodec, "-b:a", string(s.AudioBitrate))
	}
	args = append(args, "-movflags", "+faststart", "-y", output)
	return args, nil
}

// ThumbnailArgs grabs a single high quality frame at atSeconds.
func ThumbnailArgs(input, output string, atSeconds float64) []string {
	if atSeconds < 0 {
		atSeconds = 0
	}
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-ss", strconv.FormatFloat(atSeconds, 'f', 3, 64),
		"-i", input,
		"-vframes", "1",
		"-q:v", "2",
		"-y", output,
	}
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && filepath.Clean(absA) == filepath.Clean(absB) {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}
