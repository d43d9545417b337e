package model

// SourceKind identifies the role of an audio layer in the mix.
type SourceKind string

const (
	SourceVoice           SourceKind = "voice"
	SourceSoundEffect     SourceKind = "sfx"
	SourceBackgroundMusic SourceKind = "music"
)

// Anchor positions a sound effect relative to its window.
type Anchor string

const (
	AnchorStart      Anchor = "start"       // at the window start
	AnchorAfterVoice Anchor = "after_voice" // when the window's voice clip ends
)

// RequestedLayer is an audio layer a caller wants placed inside a window.
type RequestedLayer struct {
	Kind    SourceKind `json:"kind"`
	Asset   string     `json:"asset"`
	Volume  float64    `json:"volume"`
	FadeIn  float64    `json:"fade_in"`
	FadeOut float64    `json:"fade_out"`
	Anchor  Anchor     `json:"anchor,omitempty"`
	Offset  float64    `json:"offset,omitempty"`
}

// AudioLayer is a track placed on the master timeline.
type AudioLayer struct {
	SegmentID        string     `json:"segment_id"`
	Kind             SourceKind `json:"kind"`
	Asset            string     `json:"asset"`
	StartOffset      float64    `json:"start_offset"`
	Duration         float64    `json:"duration"`
	VolumeMultiplier float64    `json:"volume_multiplier"`
	FadeIn           float64    `json:"fade_in"`
	FadeOut          float64    `json:"fade_out"`
	Loops            int        `json:"loops"`            // background music repetitions before trimming
	SourceDuration   float64    `json:"source_duration"`  // length of the asset itself
	Silent           bool       `json:"silent,omitempty"` // missing asset replaced by silence
}

// End returns the exclusive end of the layer on the master timeline.
func (l AudioLayer) End() float64 {
	return l.StartOffset + l.Duration
}
