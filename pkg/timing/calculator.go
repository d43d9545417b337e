package timing

import (
	"math"

	"riddlecut/pkg/model"

	"github.com/samber/lo"
)

// Compute lays segments out back to back and validates the result against
// bounds. It never clamps: any rule violation returns an *Error and no windows.
func Compute(segments []model.Segment, policy Policy, bounds Bounds) ([]model.TimingWindow, error) {
	if err := checkSegments(segments); err != nil {
		return nil, err
	}

	windows := make([]model.TimingWindow, 0, len(segments))
	cursor := 0.0
	for i := range segments {
		seg := &segments[i]

		base := 0.0
		if seg.Narration != nil {
			base = seg.Narration.AudioDuration
		}
		pad := policy.Padding(seg.Kind, base)
		dur := base + pad
		if !finitePositive(dur) {
			return nil, newError(NonPositiveDuration, i, seg.ID, "duration %.3fs (base %.3f + padding %.3f)", dur, base, pad)
		}

		windows = append(windows, model.TimingWindow{
			SegmentID:    seg.ID,
			Kind:         seg.Kind,
			Start:        cursor,
			Duration:     dur,
			BaseDuration: base,
			Padding:      pad,
		})
		cursor += dur
	}

	total := Total(windows)
	if total < bounds.MinTotal {
		return nil, newError(BelowMinTotal, -1, "", "total %.3fs is below minimum %.3fs", total, bounds.MinTotal)
	}
	if total > bounds.MaxTotal {
		return nil, newError(AboveMaxTotal, -1, "", "total %.3fs exceeds maximum %.3fs", total, bounds.MaxTotal)
	}
	return windows, nil
}

// Total returns the end of the last window, which equals the sum of all
// durations for a contiguous layout.
func Total(windows []model.TimingWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	return windows[len(windows)-1].End()
}

// checkSegments validates ids, narration and the ordering of structural beats.
func checkSegments(segments []model.Segment) error {
	seen := make(map[string]int, len(segments))
	for i := range segments {
		seg := &segments[i]
		if seg.ID == "" {
			return newError(MissingID, i, "", "segment at index %d has no id", i)
		}
		if prev, dup := seen[seg.ID]; dup {
			return newError(DuplicateID, i, seg.ID, "id already used at index %d", prev)
		}
		seen[seg.ID] = i
		if seg.Narration != nil && !finitePositive(seg.Narration.AudioDuration) {
			return newError(InvalidNarration, i, seg.ID, "narration duration %.3fs must be positive", seg.Narration.AudioDuration)
		}
	}
	return checkOrder(segments)
}

// finitePositive rejects NaN and infinities along with values <= 0.
func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func checkOrder(segments []model.Segment) error {
	last := len(segments) - 1
	hooks := lo.CountBy(segments, func(s model.Segment) bool { return s.Kind == model.KindHook })
	ctas := lo.CountBy(segments, func(s model.Segment) bool { return s.Kind == model.KindCTA })

	for i := range segments {
		seg := &segments[i]
		switch seg.Kind {
		case model.KindHook:
			if i != 0 || hooks > 1 {
				return newError(SegmentOrder, i, seg.ID, "hook must be the single first segment")
			}
		case model.KindCTA:
			if i != last || ctas > 1 {
				return newError(SegmentOrder, i, seg.ID, "call-to-action must be the single last segment")
			}
		case model.KindTransition:
			if i == 0 || i == last {
				return newError(SegmentOrder, i, seg.ID, "transition cannot be first or last")
			}
			if !segments[i-1].Narrated() || !segments[i+1].Narrated() {
				return newError(SegmentOrder, i, seg.ID, "transition must sit between two narrated segments")
			}
		}
	}
	return nil
}
