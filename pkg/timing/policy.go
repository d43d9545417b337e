// Package timing resolves segments into contiguous windows on the master
// timeline.
package timing

import (
	"fmt"
	"math"

	"riddlecut/pkg/model"
)

// Rule is the per-kind timing rule.
type Rule struct {
	// Padding is added after the narration (or is the whole window for silent beats).
	Padding float64
	// MinDuration raises the padding so that base+padding reaches at least this value.
	MinDuration float64
}

// Policy maps segment kinds to timing rules. It is read-only after
// validation and may be shared across concurrent renders.
type Policy struct {
	Rules map[model.Kind]Rule
}

// Bounds constrains the total video length in seconds.
type Bounds struct {
	MinTotal float64
	MaxTotal float64
}

// DefaultPolicy returns the rules used for vertical riddle shorts.
func DefaultPolicy() Policy {
	return Policy{Rules: map[model.Kind]Rule{
		model.KindHook:       {Padding: 0.3},
		model.KindQuestion:   {Padding: 1.0},
		model.KindThinking:   {Padding: 5.0, MinDuration: 3.0},
		model.KindAnswer:     {Padding: 1.5},
		model.KindTransition: {Padding: 0.2},
		model.KindCTA:        {Padding: 0.5, MinDuration: 2.0},
	}}
}

// DefaultBounds returns the duration limits for a short-form video.
func DefaultBounds() Bounds {
	return Bounds{MinTotal: 10, MaxTotal: 60}
}

// RuleFor returns the rule for kind. Unknown kinds use the question rule.
func (p Policy) RuleFor(kind model.Kind) Rule {
	if r, ok := p.Rules[kind]; ok {
		return r
	}
	return p.Rules[model.KindQuestion]
}

// Padding returns the padding for a window with the given base duration.
func (p Policy) Padding(kind model.Kind, base float64) float64 {
	r := p.RuleFor(kind)
	pad := r.Padding
	if base+pad < r.MinDuration {
		pad = r.MinDuration - base
	}
	return pad
}

// Validate checks the policy once, at load time.
func (p Policy) Validate() error {
	if _, ok := p.Rules[model.KindQuestion]; !ok {
		return fmt.Errorf("timing policy: missing %q rule (used as fallback)", model.KindQuestion)
	}
	for kind, r := range p.Rules {
		if !finiteNonNegative(r.Padding) {
			return fmt.Errorf("timing policy: %s padding %.3f must be a finite value >= 0", kind, r.Padding)
		}
		if !finiteNonNegative(r.MinDuration) {
			return fmt.Errorf("timing policy: %s min duration %.3f must be a finite value >= 0", kind, r.MinDuration)
		}
	}
	return nil
}

// Validate checks that the bounds describe a non-empty range.
func (b Bounds) Validate() error {
	if !finiteNonNegative(b.MinTotal) {
		return fmt.Errorf("duration bounds: min_total %.3f must be a finite value >= 0", b.MinTotal)
	}
	if !(b.MaxTotal > 0) || math.IsInf(b.MaxTotal, 0) || b.MaxTotal < b.MinTotal {
		return fmt.Errorf("duration bounds: max_total %.3f must be positive and >= min_total %.3f", b.MaxTotal, b.MinTotal)
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}
