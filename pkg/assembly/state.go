package assembly

import (
	"errors"
	"fmt"

	"riddlecut/pkg/audio"
	"riddlecut/pkg/timing"
)

// State is a stage of one assembly. States only move forward.
type State int

const (
	Collecting State = iota
	TimingResolved
	MediaStandardized
	Mixed
	Ready
)

var stateNames = [...]string{"collecting", "timing_resolved", "media_standardized", "mixed", "ready"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	for i, n := range stateNames {
		if n == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown assembly state %q", b)
}

// RuleCanceled marks an assembly abandoned because its context ended.
const RuleCanceled = "canceled"

// Error is the single structured failure returned by Assemble. State is the
// last state reached before the failure.
type Error struct {
	State     State
	SegmentID string
	Rule      string
	Err       error
}

func (e *Error) Error() string {
	if e.SegmentID != "" {
		return fmt.Sprintf("assembly failed in %s: %s (segment %q): %v", e.State, e.Rule, e.SegmentID, e.Err)
	}
	return fmt.Sprintf("assembly failed in %s: %s: %v", e.State, e.Rule, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrap classifies err from one of the engine stages.
func wrap(state State, err error) *Error {
	out := &Error{State: state, Err: err}

	var te *timing.Error
	var me *audio.MixError
	switch {
	case errors.As(err, &te):
		out.Rule, out.SegmentID = string(te.Rule), te.SegmentID
	case errors.As(err, &me):
		out.Rule, out.SegmentID = string(me.Rule), me.SegmentID
	case isCanceled(err):
		out.Rule = RuleCanceled
	default:
		out.Rule = "internal"
	}
	return out
}
