// Package align derives word timings from character-level synthesis
// timestamps and binds caption tokens to them.
package align

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"riddlecut/pkg/model"
)

// Error reports malformed timestamp data in a narration track.
type Error struct {
	Index  int
	Detail string
}

func (e *Error) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("alignment: char %d: %s", e.Index, e.Detail)
	}
	return "alignment: " + e.Detail
}

// Align splits the character stream on whitespace into words. A word starts
// at its first character's start time and ends at its last character's end
// time. Ordinals count words from 0 in spoken order.
func Align(track *model.NarrationTrack) ([]model.Word, error) {
	if track == nil || len(track.Characters) == 0 {
		return nil, nil
	}
	if err := check(track); err != nil {
		return nil, err
	}

	var (
		words []model.Word
		cur   strings.Builder
		start float64
		end   float64
	)
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		words = append(words, model.Word{
			Text:      cur.String(),
			StartTime: start,
			EndTime:   end,
			Ordinal:   len(words),
		})
		cur.Reset()
	}

	for i, ch := range track.Characters {
		if isSpace(ch) {
			flush()
			continue
		}
		if cur.Len() == 0 {
			start = track.CharStartTimes[i]
		}
		cur.WriteString(ch)
		end = track.CharEndTimes[i]
	}
	flush()
	return words, nil
}

func check(track *model.NarrationTrack) error {
	n := len(track.Characters)
	if len(track.CharStartTimes) != n || len(track.CharEndTimes) != n {
		return &Error{Index: -1, Detail: fmt.Sprintf("length mismatch: %d characters, %d starts, %d ends",
			n, len(track.CharStartTimes), len(track.CharEndTimes))}
	}
	for i := 0; i < n; i++ {
		s, e := track.CharStartTimes[i], track.CharEndTimes[i]
		// written so that NaN fails too
		if !(s >= 0) || !(e >= s) || math.IsInf(e, 1) {
			return &Error{Index: i, Detail: fmt.Sprintf("invalid span [%.3f, %.3f]", s, e)}
		}
		if i > 0 && s < track.CharEndTimes[i-1] {
			return &Error{Index: i, Detail: fmt.Sprintf("start %.3f precedes previous end %.3f", s, track.CharEndTimes[i-1])}
		}
	}
	return nil
}

// isSpace treats a character entry as whitespace when it is non-empty and
// made of whitespace runes only. Providers sometimes emit "" for silence.
func isSpace(ch string) bool {
	if ch == "" {
		return false
	}
	for _, r := range ch {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
