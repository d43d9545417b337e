package config

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"riddlecut/pkg/audio"
	"riddlecut/pkg/captions"
	"riddlecut/pkg/model"
	"riddlecut/pkg/timing"
	"riddlecut/pkg/video"

	"github.com/gopxl/beep/v2"
)

// TimingPolicy converts the timing section into a validated policy and
// duration bounds.
func (c *Config) TimingPolicy() (timing.Policy, timing.Bounds, error) {
	p := timing.Policy{Rules: make(map[model.Kind]timing.Rule, len(c.Timing.Kinds))}
	for name, k := range c.Timing.Kinds {
		kind := model.ParseKind(name)
		if !kind.Known() {
			return timing.Policy{}, timing.Bounds{}, fmt.Errorf("timing.kinds: unknown segment kind %q", name)
		}
		p.Rules[kind] = timing.Rule{Padding: k.Padding.Seconds(), MinDuration: k.MinDuration.Seconds()}
	}
	b := timing.Bounds{MinTotal: c.Timing.MinTotal.Seconds(), MaxTotal: c.Timing.MaxTotal.Seconds()}

	if err := p.Validate(); err != nil {
		return timing.Policy{}, timing.Bounds{}, err
	}
	if err := b.Validate(); err != nil {
		return timing.Policy{}, timing.Bounds{}, err
	}
	return p, b, nil
}

// MixOptions converts the audio section into mixer options.
func (c *Config) MixOptions() audio.MixOptions {
	opts := audio.DefaultMixOptions()
	opts.SampleRate = beep.SampleRate(c.Audio.SampleRate)
	opts.FrameRate = c.Video.FPS
	opts.VoiceFadeOut = c.Audio.VoiceFadeOut.Seconds()
	opts.AllowMissingSFX = c.Audio.AllowMissingSFX
	opts.MasterGain = c.Audio.MasterGain
	for name, v := range c.Audio.Volumes {
		opts.Volumes[model.SourceKind(name)] = v
	}
	return opts
}

// VideoOptions converts the video section into standardizer options.
func (c *Config) VideoOptions() video.Options {
	fill, _ := ParseColor(c.Video.PlaceholderColor)
	return video.Options{
		Resolution: model.Resolution{Width: c.Video.Width, Height: c.Video.Height},
		FrameRate:  c.Video.FPS,
		Fill:       fill,
	}
}

// CaptionLayout returns the line budgets.
func (c *Config) CaptionLayout() captions.LayoutOptions {
	return captions.LayoutOptions{MaxChars: c.Captions.MaxChars, MaxWords: c.Captions.MaxWords}
}

// CaptionStyle returns the ASS style sized to the output frame.
func (c *Config) CaptionStyle() captions.Style {
	st := captions.DefaultStyle()
	st.Font = c.Captions.Font
	st.FontSize = c.Captions.FontSize
	st.MarginV = c.Captions.MarginV
	st.PlayResX, st.PlayResY = c.Video.Width, c.Video.Height
	if col, err := ParseColor(c.Captions.PrimaryColor); err == nil {
		st.Primary = assColor(col)
	}
	if col, err := ParseColor(c.Captions.HighlightColor); err == nil {
		st.Highlight = assColor(col)
	}
	return st
}

// ParseColor parses #RRGGBB into an opaque colour.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// assColor formats c as an ASS &HAABBGGRR literal.
func assColor(c color.RGBA) string {
	return fmt.Sprintf("&H00%02X%02X%02X", c.B, c.G, c.R)
}
