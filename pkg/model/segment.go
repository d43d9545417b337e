package model

import "strings"

// Kind is the narrative role of a segment.
type Kind string

const (
	KindHook       Kind = "hook"
	KindQuestion   Kind = "question"
	KindThinking   Kind = "thinking"
	KindAnswer     Kind = "answer"
	KindTransition Kind = "transition"
	KindCTA        Kind = "cta"
)

// Kinds lists every known segment kind in canonical order.
var Kinds = []Kind{KindHook, KindQuestion, KindThinking, KindAnswer, KindTransition, KindCTA}

// ParseKind normalizes s to a Kind. Unknown values are returned as-is so that
// timing lookups can apply their fallback rule.
func ParseKind(s string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(s)))
}

// UnmarshalText normalizes decoded kinds, so "Hook" and "hook" are the same.
func (k *Kind) UnmarshalText(text []byte) error {
	*k = ParseKind(string(text))
	return nil
}

// Known reports whether k is one of the declared kinds.
func (k Kind) Known() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Segment is one narrative beat of the video.
type Segment struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	DisplayText string          `json:"display_text"`
	Narration   *NarrationTrack `json:"narration,omitempty"` // nil for silent beats such as thinking pauses
	Decoration  string          `json:"decoration,omitempty"`
}

// Narrated reports whether the segment carries a voice track.
func (s *Segment) Narrated() bool {
	return s.Narration != nil
}

// NarrationTrack is a synthesized speech result with per-character timing.
// CharStartTimes and CharEndTimes are parallel to Characters and expressed in
// seconds relative to the start of the clip.
type NarrationTrack struct {
	AudioPath      string    `json:"audio_path,omitempty"`
	AudioDuration  float64   `json:"audio_duration_seconds"`
	Characters     []string  `json:"characters"`
	CharStartTimes []float64 `json:"char_start_times"`
	CharEndTimes   []float64 `json:"char_end_times"`
}

// HasTimestamps reports whether the provider supplied character timing.
func (n *NarrationTrack) HasTimestamps() bool {
	return n != nil && len(n.Characters) > 0
}

// Text joins the character stream back into a string.
func (n *NarrationTrack) Text() string {
	if n == nil {
		return ""
	}
	return strings.Join(n.Characters, "")
}

// Word is one spoken word derived from a narration track. Times are relative
// to the segment's own narration clip.
type Word struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Ordinal   int     `json:"ordinal"`
}

// TimingWindow is the resolved placement of one segment on the master timeline.
type TimingWindow struct {
	SegmentID    string  `json:"segment_id"`
	Kind         Kind    `json:"kind"`
	Start        float64 `json:"start"`
	Duration     float64 `json:"duration"`
	BaseDuration float64 `json:"base_duration"`
	Padding      float64 `json:"padding"`
}

// End returns the exclusive end of the window.
func (w TimingWindow) End() float64 {
	return w.Start + w.Duration
}
