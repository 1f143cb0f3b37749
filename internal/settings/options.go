package settings

// Preset is a named encoder speed/quality tradeoff.
type Preset string

const (
	PresetUltraFast Preset = "ultra_fast"
	PresetFast      Preset = "fast"
	PresetMedium    Preset = "medium"
	PresetSlow      Preset = "slow"
	PresetVerySlow  Preset = "veryslow"
)

type presetSpec struct {
	encoder     string
	crf         int
	mbPerSecond float64
	label       string
}

var presetTable = map[Preset]presetSpec{
	PresetUltraFast: {encoder: "ultrafast", crf: 28, mbPerSecond: 10, label: "Ultra fast (lower quality)"},
	PresetFast:      {encoder: "fast", crf: 26, mbPerSecond: 8, label: "Fast (good quality)"},
	PresetMedium:    {encoder: "medium", crf: 24, mbPerSecond: 5, label: "Medium (balanced)"},
	PresetSlow:      {encoder: "slow", crf: 22, mbPerSecond: 3, label: "Slow (high quality)"},
	PresetVerySlow:  {encoder: "veryslow", crf: 20, mbPerSecond: 1.5, label: "Very slow (best quality)"},
}

// Presets lists presets from fastest to slowest.
func Presets() []Preset {
	return []Preset{PresetUltraFast, PresetFast, PresetMedium, PresetSlow, PresetVerySlow}
}

// Valid reports whether p is a known preset.
func (p Preset) Valid() bool {
	_, ok := presetTable[p]
	return ok
}

// EncoderPreset returns the libx264 -preset value.
func (p Preset) EncoderPreset() string { return presetTable[p].encoder }

// CRF returns the constant rate factor paired with the preset.
func (p Preset) CRF() int { return presetTable[p].crf }

// Throughput returns the estimated processing speed in MB/s.
func (p Preset) Throughput() float64 { return presetTable[p].mbPerSecond }

// Label returns a human readable description.
func (p Preset) Label() string { return presetTable[p].label }

// Resolution is an output size cap; ResolutionKeep leaves the source size.
type Resolution string

const (
	ResolutionKeep  Resolution = "keep"
	Resolution240p  Resolution = "240p"
	Resolution360p  Resolution = "360p"
	Resolution480p  Resolution = "480p"
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
)

type dimensions struct{ width, height int }

var resolutionTable = map[Resolution]dimensions{
	Resolution240p:  {426, 240},
	Resolution360p:  {640, 360},
	Resolution480p:  {854, 480},
	Resolution720p:  {1280, 720},
	Resolution1080p: {1920, 1080},
}

// Resolutions lists the accepted resolutions, keep first.
func Resolutions() []Resolution {
	return []Resolution{ResolutionKeep, Resolution240p, Resolution360p, Resolution480p, Resolution720p, Resolution1080p}
}

// Valid reports whether r is a known resolution.
func (r Resolution) Valid() bool {
	if r == ResolutionKeep {
		return true
	}
	_, ok := resolutionTable[r]
	return ok
}

// Dimensions returns the target size. ok is false for keep.
func (r Resolution) Dimensions() (width, height int, ok bool) {
	d, ok := resolutionTable[r]
	return d.width, d.height, ok
}

// AudioBitrate is an AAC bitrate from the fixed ladder, or AudioNone.
type AudioBitrate string

// AudioNone marks a job whose audio is removed.
const AudioNone AudioBitrate = "none"

var audioLadder = []AudioBitrate{"32k", "64k", "128k", "192k", "256k", "320k"}

// AudioBitrates lists the audio ladder, lowest first.
func AudioBitrates() []AudioBitrate {
	return append([]AudioBitrate(nil), audioLadder...)
}

// InLadder reports whether b is one of the numeric ladder values.
func (b AudioBitrate) InLadder() bool {
	for _, v := range audioLadder {
		if v == b {
			return true
		}
	}
	return false
}

// VideoBitrate is a target video bitrate from the fixed ladder, or VideoAuto.
type VideoBitrate string

// VideoAuto leaves the bitrate to the CRF setting.
const VideoAuto VideoBitrate = "auto"

var videoLadder = []VideoBitrate{"100k", "500k", "1000k", "2000k", "4000k", "8000k"}

// VideoBitrates lists the video ladder, lowest first.
func VideoBitrates() []VideoBitrate {
	return append([]VideoBitrate(nil), videoLadder...)
}

// InLadder reports whether b is one of the numeric ladder values.
func (b VideoBitrate) InLadder() bool {
	for _, v := range videoLadder {
		if v == b {
			return true
		}
	}
	return false
}

// Valid reports whether b is a ladder value or auto.
func (b VideoBitrate) Valid() bool {
	return b == VideoAuto || b.InLadder()
}

// ParsePreset parses a preset name. Only the exact enumerated names are
// accepted.
func ParsePreset(value string) (Preset, error) {
	p := Preset(value)
	if !p.Valid() {
		return "", &ValidationError{Field: FieldPreset, Kind: KindInvalidPreset, Value: value}
	}
	return p, nil
}

// ParseResolution parses a resolution name.
func ParseResolution(value string) (Resolution, error) {
	r := Resolution(value)
	if !r.Valid() {
		return "", &ValidationError{Field: FieldResolution, Kind: KindInvalidResolution, Value: value}
	}
	return r, nil
}

// ParseAudioBitrate parses an audio ladder value or "none".
func ParseAudioBitrate(value string) (AudioBitrate, error) {
	b := AudioBitrate(value)
	if b != AudioNone && !b.InLadder() {
		return "", &ValidationError{Field: FieldAudioBitrate, Kind: KindInvalidAudioBitrate, Value: value}
	}
	return b, nil
}

// ParseVideoBitrate parses a video ladder value or "auto".
func ParseVideoBitrate(value string) (VideoBitrate, error) {
	b := VideoBitrate(value)
	if !b.Valid() {
		return "", &ValidationError{Field: FieldVideoBitrate, Kind: KindInvalidVideoBitrate, Value: value}
	}
	return b, nil
}
