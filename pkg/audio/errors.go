package audio

import "fmt"

// MixRule names the mixing rule that failed.
type MixRule string

const (
	RuleMissingAsset       MixRule = "missing_asset"
	RuleDegenerateTrack    MixRule = "degenerate_track"
	RuleVoiceWithoutSpeech MixRule = "voice_without_narration"
	RuleUnknownSegment     MixRule = "unknown_segment"
	RuleInvalidLayer       MixRule = "invalid_layer"
)

// MixError reports a failure to place a layer for one segment.
type MixError struct {
	Rule      MixRule
	SegmentID string
	Asset     string
	Err       error
}

func (e *MixError) Error() string {
	msg := fmt.Sprintf("mix: %s (segment %q", e.Rule, e.SegmentID)
	if e.Asset != "" {
		msg += fmt.Sprintf(", asset %q", e.Asset)
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MixError) Unwrap() error {
	return e.Err
}
