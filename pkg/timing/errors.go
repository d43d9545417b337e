package timing

import "fmt"

// Violation names the timing rule that failed.
type Violation string

const (
	MissingID           Violation = "missing_id"
	DuplicateID         Violation = "duplicate_id"
	InvalidNarration    Violation = "invalid_narration"
	NonPositiveDuration Violation = "non_positive_duration"
	BelowMinTotal       Violation = "below_min_total"
	AboveMaxTotal       Violation = "above_max_total"
	SegmentOrder        Violation = "segment_order"
)

// Error reports a failed timing rule. SegmentID is empty for aggregate rules.
type Error struct {
	Rule      Violation
	SegmentID string
	Index     int
	Detail    string
}

func (e *Error) Error() string {
	if e.SegmentID != "" {
		return fmt.Sprintf("timing: %s (segment %q): %s", e.Rule, e.SegmentID, e.Detail)
	}
	return fmt.Sprintf("timing: %s: %s", e.Rule, e.Detail)
}

func newError(rule Violation, idx int, id, format string, args ...any) *Error {
	return &Error{Rule: rule, SegmentID: id, Index: idx, Detail: fmt.Sprintf(format, args...)}
}
