package captions

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Style controls the ASS subtitle look for a 9:16 frame.
type Style struct {
	Font      string
	FontSize  int
	PlayResX  int
	PlayResY  int
	MarginV   int
	Primary   string // ASS colour, e.g. &H00FFFFFF
	Highlight string // karaoke fill colour
}

// DefaultStyle returns the caption style for 1080x1920 output.
func DefaultStyle() Style {
	return Style{
		Font:      "Montserrat",
		FontSize:  88,
		PlayResX:  1080,
		PlayResY:  1920,
		MarginV:   640,
		Primary:   "&H00FFFFFF",
		Highlight: "&H0000D7FF",
	}
}

// RenderASS writes an ASS document with one karaoke event per caption line.
// Overlays without word timing become a single plain event spanning the window.
func RenderASS(overlays []Overlay, st Style) string {
	var b strings.Builder
	b.WriteString(assHeader(st))
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, ov := range overlays {
		if ov.Decoration != "" {
			writeEvent(&b, 1, ov.Start, ov.End, "Decoration", sanitize(ov.Decoration))
		}
		if len(ov.Lines) == 0 {
			continue
		}
		if !ov.Highlight {
			var lines []string
			for _, ln := range ov.Lines {
				lines = append(lines, plainText(ln))
			}
			writeEvent(&b, 0, ov.Start, ov.End, "Caption", strings.Join(lines, `\N`))
			continue
		}
		for _, ln := range ov.Lines {
			writeEvent(&b, 0, ln.Start, ln.End, "Caption", karaoke(ln))
		}
	}
	return b.String()
}

func writeEvent(b *strings.Builder, layer int, start, end float64, style, text string) {
	fmt.Fprintf(b, "Dialogue: %d,%s,%s,%s,,0,0,0,,%s\n", layer, assTime(start), assTime(end), style, text)
}

func karaoke(ln Line) string {
	var parts []string
	cursor := ln.Start
	for _, t := range ln.Tokens {
		if !t.Timed {
			parts = append(parts, sanitize(t.Text))
			continue
		}
		// silence before the word keeps the fill in step with speech
		prefix := ""
		if gap := centis(t.Start - cursor); gap > 0 {
			prefix = fmt.Sprintf("{\\k%d}", gap)
		}
		d := centis(t.End - t.Start)
		if d < 1 {
			d = 1
		}
		parts = append(parts, fmt.Sprintf("%s{\\k%d}%s", prefix, d, sanitize(t.Text)))
		cursor = t.End
	}
	return strings.Join(parts, " ")
}

func plainText(ln Line) string {
	words := make([]string, len(ln.Tokens))
	for i, t := range ln.Tokens {
		words[i] = sanitize(t.Text)
	}
	return strings.Join(words, " ")
}

func assHeader(st Style) string {
	return strings.TrimSpace(fmt.Sprintf(`
[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Caption,%s,%d,%s,%s,&H00000000,&H64000000,1,0,0,0,100,100,0,0,1,6,2,2,60,60,%d,1
Style: Decoration,%s,%d,%s,%s,&H00000000,&H64000000,1,0,0,0,100,100,0,0,1,4,2,8,60,60,160,1
`, st.PlayResX, st.PlayResY,
		st.Font, st.FontSize, st.Highlight, st.Primary, st.MarginV,
		st.Font, st.FontSize*3/4, st.Primary, st.Primary))
}

func centis(sec float64) int {
	return int(math.Round(sec * 100))
}

func assTime(sec float64) string {
	d := time.Duration(centis(sec)) * 10 * time.Millisecond
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}
