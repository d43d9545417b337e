package video

import (
	"image"
	"image/color"

	"riddlecut/pkg/model"

	"golang.org/x/image/draw"
)

// NormalizeFrame crops img to the given source-space rectangle and scales the
// result to res.
func NormalizeFrame(img image.Image, crop image.Rectangle, res model.Resolution) *image.RGBA {
	b := img.Bounds()
	// crop is expressed relative to the frame origin
	src := crop.Add(b.Min).Intersect(b)
	if src.Empty() {
		src = b
	}
	dst := image.NewRGBA(image.Rect(0, 0, res.Width, res.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst
}

// SolidFrame returns a frame filled with c, used as a placeholder poster.
func SolidFrame(c color.RGBA, res model.Resolution) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, res.Width, res.Height))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return dst
}
