// Package captions builds caption overlay instructions from display text and
// aligned words, and exports them for the renderer.
package captions

import (
	"unicode/utf8"

	"riddlecut/pkg/align"
	"riddlecut/pkg/model"
)

// LayoutOptions bounds the size of one caption line.
type LayoutOptions struct {
	MaxChars int
	MaxWords int
}

// DefaultLayout keeps lines readable on a vertical frame.
func DefaultLayout() LayoutOptions {
	return LayoutOptions{MaxChars: 18, MaxWords: 4}
}

// Token is one displayed word. Start and End are on the master timeline and
// only meaningful when Timed is true.
type Token struct {
	Text    string  `json:"text"`
	Ordinal int     `json:"ordinal"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Timed   bool    `json:"timed"`
}

// Line is a group of tokens rendered together.
type Line struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Tokens []Token `json:"tokens"`
}

// Overlay holds the caption instructions for one window.
type Overlay struct {
	SegmentID  string  `json:"segment_id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Lines      []Line  `json:"lines"`
	Decoration string  `json:"decoration,omitempty"`
	Highlight  bool    `json:"highlight"` // false when word timing was unavailable
}

// Layout binds the segment's display tokens to words by ordinal and packs
// them into lines. words may be empty, in which case every line spans the
// whole window and nothing is highlighted.
func Layout(seg *model.Segment, win model.TimingWindow, words []model.Word, opts LayoutOptions) Overlay {
	ov := Overlay{
		SegmentID:  seg.ID,
		Start:      win.Start,
		End:        win.End(),
		Decoration: seg.Decoration,
		Highlight:  len(words) > 0,
	}

	bound := align.Bind(align.Tokens(seg.DisplayText), words)
	tokens := make([]Token, len(bound))
	for i, b := range bound {
		tokens[i] = Token{Text: b.Text, Ordinal: b.Ordinal}
		if b.Word != nil {
			tokens[i].Start = win.Start + b.Word.StartTime
			tokens[i].End = win.Start + b.Word.EndTime
			tokens[i].Timed = true
		}
	}

	timed := make([]bool, 0, len(tokens))
	for _, grp := range pack(tokens, opts) {
		ln, ok := lineFor(grp, ov)
		ov.Lines = append(ov.Lines, ln)
		timed = append(timed, ok)
	}
	if ov.Highlight {
		fillUntimed(ov.Lines, timed, ov)
	}
	return ov
}

// lineFor spans the line over its timed tokens. Lines without any keep the
// whole window and report false.
func lineFor(tokens []Token, ov Overlay) (Line, bool) {
	ln := Line{Start: ov.Start, End: ov.End, Tokens: tokens}
	first, last := -1, -1
	for i, t := range tokens {
		if t.Timed {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return ln, false
	}
	ln.Start = tokens[first].Start
	ln.End = tokens[last].End
	return ln, true
}

// fillUntimed places each run of untimed lines in the gap between its timed
// neighbours (or the window edges), split evenly, so no two lines overlap.
func fillUntimed(lines []Line, timed []bool, ov Overlay) {
	for i := 0; i < len(lines); {
		if timed[i] {
			i++
			continue
		}
		j := i
		for j < len(lines) && !timed[j] {
			j++
		}
		from, to := ov.Start, ov.End
		if i > 0 {
			from = lines[i-1].End
		}
		if j < len(lines) {
			to = lines[j].Start
		}
		if to < from {
			to = from
		}
		step := (to - from) / float64(j-i)
		for k := i; k < j; k++ {
			lines[k].Start = from + float64(k-i)*step
			lines[k].End = from + float64(k-i+1)*step
		}
		i = j
	}
}

func pack(tokens []Token, opts LayoutOptions) [][]Token {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultLayout().MaxChars
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = DefaultLayout().MaxWords
	}

	var (
		out    [][]Token
		cur    []Token
		curLen int
	)
	for _, t := range tokens {
		wl := utf8.RuneCountInString(t.Text)
		next := curLen + wl
		if curLen > 0 {
			next++
		}
		if len(cur) > 0 && (len(cur) >= opts.MaxWords || next > opts.MaxChars) {
			out = append(out, cur)
			cur, curLen = nil, 0
			next = wl
		}
		cur = append(cur, t)
		curLen = next
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
