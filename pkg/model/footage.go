package model

import (
	"fmt"
	"image"
	"image/color"
)

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (r Resolution) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// FootageClip describes a background clip and, once standardized, the edit
// the renderer must apply to it.
type FootageClip struct {
	ID         string      `json:"id"`
	Source     string      `json:"source"`
	Duration   float64     `json:"duration"`
	Resolution Resolution  `json:"resolution"`
	Poster     image.Image `json:"-"` // optional first frame, normalized along with the clip

	// Set by standardization.
	Edit        *Edit      `json:"edit,omitempty"`
	Placeholder bool       `json:"placeholder,omitempty"`
	Fill        color.RGBA `json:"fill"`
}

// Edit is the deterministic transform that turns a source clip into a
// background of an exact duration and frame size.
type Edit struct {
	Crop   image.Rectangle `json:"crop"`   // region of the source frame kept
	Scale  Resolution      `json:"scale"`  // output frame size
	Loops  int             `json:"loops"`  // whole-clip repetitions, 1 means no looping
	Trim   float64         `json:"trim"`   // output length in seconds, cut from the start
	Frames int             `json:"frames"` // Trim expressed in output frames

	SourceSpan       float64    `json:"source_span"` // length of one source repetition
	SourceResolution Resolution `json:"source_resolution"`
}
