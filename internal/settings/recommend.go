package settings

import "clipress/internal/media/ffprobe"

const (
	mebibyte       = 1024 * 1024
	largeSource    = 500 * mebibyte
	mediumSource   = 100 * mebibyte
	pixels1080p    = 1920 * 1080
	pixels720p     = 1280 * 720
	pixels480pWide = 854 * 480
)

// Recommend derives a suggested bundle from a probed source. Larger files get
// faster presets, tall sources are capped, and bitrates follow pixel count.
func Recommend(info ffprobe.MediaInfo) JobSettings {
	s := Defaults()

	switch {
	case info.SizeBytes > largeSource:
		s.Preset = PresetFast
	case info.SizeBytes > mediumSource:
		s.Preset = PresetMedium
	default:
		s.Preset = PresetSlow
	}

	switch height := info.Height(); {
	case height > 1080:
		s.Resolution = Resolution1080p
	case height > 720:
		s.Resolution = Resolution720p
	case height > 480:
		s.Resolution = Resolution480p
	default:
		s.Resolution = ResolutionKeep
	}

	switch pixels := info.Pixels(); {
	case pixels > pixels1080p:
		s.VideoBitrate, s.AudioBitrate = "8000k", "256k"
	case pixels > pixels720p:
		s.VideoBitrate, s.AudioBitrate = "4000k", "192k"
	case pixels > pixels480pWide:
		s.VideoBitrate, s.AudioBitrate = "2000k", "128k"
	default:
		s.VideoBitrate, s.AudioBitrate = "1000k", "128k"
	}
	return s
}
