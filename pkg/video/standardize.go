// Package video fits background footage to timing windows.
package video

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"riddlecut/pkg/model"
)

// Reason classifies a rejected clip.
type Reason string

const (
	ReasonZeroDuration Reason = "zero_duration"
	ReasonUnreadable   Reason = "unreadable"
	ReasonBadTarget    Reason = "bad_target"
)

// StandardizationError reports a clip that cannot be fitted. Callers are
// expected to fall back to Placeholder rather than abort.
type StandardizationError struct {
	ClipID string
	Reason Reason
	Detail string
}

func (e *StandardizationError) Error() string {
	return fmt.Sprintf("standardize clip %q: %s: %s", e.ClipID, e.Reason, e.Detail)
}

// Options configures a Standardizer.
type Options struct {
	Resolution model.Resolution
	FrameRate  int
	Fill       color.RGBA
	Logger     *slog.Logger
}

// DefaultOptions targets 1080x1920 vertical video at 30fps.
func DefaultOptions() Options {
	return Options{
		Resolution: model.Resolution{Width: 1080, Height: 1920},
		FrameRate:  30,
		Fill:       color.RGBA{R: 0x12, G: 0x12, B: 0x1c, A: 0xff},
	}
}

// Standardizer loops, crops and trims clips. It holds no mutable state and
// is safe for concurrent use.
type Standardizer struct {
	opts Options
	log  *slog.Logger
}

// New creates a Standardizer.
func New(opts Options) *Standardizer {
	def := DefaultOptions()
	if !opts.Resolution.Valid() {
		opts.Resolution = def.Resolution
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = def.FrameRate
	}
	if opts.Fill.A == 0 {
		opts.Fill = def.Fill
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Standardizer{opts: opts, log: log}
}

// Standardize returns clip fitted to exactly target seconds at the output
// resolution. The crop is decided before looping so every repetition already
// has the output frame size. No randomness is involved: the same input always
// yields the same edit.
func (s *Standardizer) Standardize(clip model.FootageClip, target float64) (model.FootageClip, error) {
	if target <= 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		return model.FootageClip{}, &StandardizationError{ClipID: clip.ID, Reason: ReasonBadTarget, Detail: fmt.Sprintf("target %.3fs", target)}
	}
	if clip.Placeholder {
		out := s.placeholder(clip.ID, target)
		out.Poster = clip.Poster
		if out.Poster == nil {
			out.Poster = SolidFrame(s.opts.Fill, s.opts.Resolution)
		}
		return out, nil
	}

	span, res := clip.Duration, clip.Resolution
	if clip.Edit != nil {
		// already standardized: refit from the original source
		span, res = clip.Edit.SourceSpan, clip.Edit.SourceResolution
	}
	if span <= 0 || math.IsNaN(span) {
		return model.FootageClip{}, &StandardizationError{ClipID: clip.ID, Reason: ReasonZeroDuration, Detail: fmt.Sprintf("duration %.3fs", span)}
	}
	if clip.Source == "" || !res.Valid() {
		return model.FootageClip{}, &StandardizationError{ClipID: clip.ID, Reason: ReasonUnreadable, Detail: fmt.Sprintf("source %q at %s", clip.Source, res)}
	}

	edit := &model.Edit{
		Crop:             CenterCrop(res, s.opts.Resolution),
		Scale:            s.opts.Resolution,
		Loops:            1,
		Trim:             target,
		Frames:           int(math.Round(target * float64(s.opts.FrameRate))),
		SourceSpan:       span,
		SourceResolution: res,
	}
	if span < target {
		edit.Loops = int(math.Ceil(target / span))
	}

	out := model.FootageClip{
		ID:         clip.ID,
		Source:     clip.Source,
		Duration:   target,
		Resolution: s.opts.Resolution,
		Edit:       edit,
	}
	if clip.Poster != nil && clip.Edit == nil {
		out.Poster = NormalizeFrame(clip.Poster, edit.Crop, s.opts.Resolution)
	} else {
		out.Poster = clip.Poster
	}
	return out, nil
}

// Placeholder returns a solid-colour clip lasting exactly target seconds,
// with a matching poster frame.
func (s *Standardizer) Placeholder(id string, target float64) model.FootageClip {
	out := s.placeholder(id, target)
	out.Poster = SolidFrame(s.opts.Fill, s.opts.Resolution)
	return out
}

func (s *Standardizer) placeholder(id string, target float64) model.FootageClip {
	return model.FootageClip{
		ID:          id,
		Duration:    target,
		Resolution:  s.opts.Resolution,
		Placeholder: true,
		Fill:        s.opts.Fill,
		Edit: &model.Edit{
			Crop:   image.Rect(0, 0, s.opts.Resolution.Width, s.opts.Resolution.Height),
			Scale:  s.opts.Resolution,
			Loops:  1,
			Trim:   target,
			Frames: int(math.Round(target * float64(s.opts.FrameRate))),
		},
	}
}

// CenterCrop returns the largest centred region of src with dst's aspect
// ratio. Dimensions are kept even for chroma-subsampled encoders.
func CenterCrop(src, dst model.Resolution) image.Rectangle {
	if src.Width*dst.Height > dst.Width*src.Height {
		w := even(src.Height * dst.Width / dst.Height)
		x := (src.Width - w) / 2
		return image.Rect(x, 0, x+w, src.Height)
	}
	h := even(src.Width * dst.Height / dst.Width)
	y := (src.Height - h) / 2
	return image.Rect(0, y, src.Width, y+h)
}

func even(n int) int {
	if n > 1 && n%2 != 0 {
		return n - 1
	}
	return n
}
