package settings

import "math"

// JobSettings is the option bundle snapshotted onto a job at admission.
type JobSettings struct {
	Preset            Preset       `json:"preset" toml:"preset"`
	Resolution        Resolution   `json:"resolution" toml:"resolution"`
	AudioBitrate      AudioBitrate `json:"audio_bitrate" toml:"audio_bitrate"`
	VideoBitrate      VideoBitrate `json:"video_bitrate" toml:"video_bitrate"`
	RemoveAudio       bool         `json:"remove_audio" toml:"remove_audio"`
	GenerateThumbnail bool         `json:"generate_thumbnail" toml:"generate_thumbnail"`
}

// Defaults returns the stock bundle.
func Defaults() JobSettings {
	return JobSettings{
		Preset:            PresetMedium,
		Resolution:        ResolutionKeep,
		AudioBitrate:      "128k",
		VideoBitrate:      "2000k",
		RemoveAudio:       false,
		GenerateThumbnail: true,
	}
}

// WithDefaults fills empty enumerated fields from base. Flags are left
// untouched since their zero value is meaningful.
func (s JobSettings) WithDefaults(base JobSettings) JobSettings {
	if s.Preset == "" {
		s.Preset = base.Preset
	}
	if s.Resolution == "" {
		s.Resolution = base.Resolution
	}
	if s.AudioBitrate == "" {
		s.AudioBitrate = base.AudioBitrate
		if s.RemoveAudio && s.AudioBitrate == "" {
			s.AudioBitrate = AudioNone
		}
	}
	if s.VideoBitrate == "" {
		s.VideoBitrate = base.VideoBitrate
	}
	return s
}

// Overrides is a partial bundle supplied with a request. Empty enumerated
// fields and nil flags are taken from the base bundle in Apply.
type Overrides struct {
	Preset            Preset
	Resolution        Resolution
	AudioBitrate      AudioBitrate
	VideoBitrate      VideoBitrate
	RemoveAudio       *bool
	GenerateThumbnail *bool
}

// Apply layers o over base.
func (o Overrides) Apply(base JobSettings) JobSettings {
	s := JobSettings{
		Preset:            o.Preset,
		Resolution:        o.Resolution,
		AudioBitrate:      o.AudioBitrate,
		VideoBitrate:      o.VideoBitrate,
		RemoveAudio:       base.RemoveAudio,
		GenerateThumbnail: base.GenerateThumbnail,
	}
	if o.RemoveAudio != nil {
		s.RemoveAudio = *o.RemoveAudio
	}
	if o.GenerateThumbnail != nil {
		s.GenerateThumbnail = *o.GenerateThumbnail
	}
	return s.WithDefaults(base)
}

// Validate checks every field against its enumerated set. AudioNone is only
// accepted when audio is removed; VideoAuto is always accepted.
func Validate(s JobSettings) error {
	if !s.Preset.Valid() {
		return &ValidationError{Field: FieldPreset, Kind: KindInvalidPreset, Value: string(s.Preset)}
	}
	if !s.Resolution.Valid() {
		return &ValidationError{Field: FieldResolution, Kind: KindInvalidResolution, Value: string(s.Resolution)}
	}
	if !s.AudioBitrate.InLadder() && !(s.AudioBitrate == AudioNone && s.RemoveAudio) {
		return &ValidationError{Field: FieldAudioBitrate, Kind: KindInvalidAudioBitrate, Value: string(s.AudioBitrate)}
	}
	if !s.VideoBitrate.Valid() {
		return &ValidationError{Field: FieldVideoBitrate, Kind: KindInvalidVideoBitrate, Value: string(s.VideoBitrate)}
	}
	return nil
}

// Validate is a method form of the package-level Validate.
func (s JobSettings) Validate() error { return Validate(s) }

// EstimateSeconds predicts processing time for a source of sizeBytes.
func EstimateSeconds(sizeBytes int64, preset Preset) int64 {
	speed := preset.Throughput()
	if speed <= 0 {
		speed = PresetMedium.Throughput()
	}
	if sizeBytes <= 0 {
		return 0
	}
	mb := float64(sizeBytes) / (1024 * 1024)
	return int64(math.Floor(mb / speed))
}

// UnmarshalText rejects unknown presets. An empty value decodes as unset.
func (p *Preset) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = ""
		return nil
	}
	parsed, err := ParsePreset(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// UnmarshalText rejects unknown resolutions. An empty value decodes as unset.
func (r *Resolution) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = ""
		return nil
	}
	parsed, err := ParseResolution(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// UnmarshalText rejects bitrates outside the audio ladder.
func (b *AudioBitrate) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*b = ""
		return nil
	}
	parsed, err := ParseAudioBitrate(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// UnmarshalText rejects bitrates outside the video ladder.
func (b *VideoBitrate) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*b = ""
		return nil
	}
	parsed, err := ParseVideoBitrate(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
