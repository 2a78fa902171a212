package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/clone"
)

// Box is a rectangle to outline on a frame.
type Box struct {
	Rect  image.Rectangle
	Color color.Color
}

// OverlayResult contains the frame with boxes drawn on it.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Boxes       int    `json:"boxes"` // boxes that were at least partly visible
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Overlay draws each box's outline onto a copy of img. Outlines are drawn
// inside the box so the outline never covers pixels outside the crop.
// Boxes are clipped to the image; a box entirely outside it is skipped.
// lineWidth below 1 is drawn as 1.
func Overlay(img image.Image, boxes []Box, lineWidth int) (*OverlayResult, error) {
	canvas := clone.AsRGBA(img)
	origin := canvas.Bounds().Min
	if lineWidth < 1 {
		lineWidth = 1
	}

	drawn := 0
	for _, b := range boxes {
		r := b.Rect.Canon().Add(origin)
		if r.Intersect(canvas.Bounds()).Empty() {
			continue
		}
		c := b.Color
		if c == nil {
			c = color.White
		}
		outline(canvas, r, lineWidth, c)
		drawn++
	}

	encoded, err := encodePNG(canvas)
	if err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}

	return &OverlayResult{
		Width:       canvas.Bounds().Dx(),
		Height:      canvas.Bounds().Dy(),
		Boxes:       drawn,
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

func outline(dst *image.RGBA, r image.Rectangle, width int, c color.Color) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), // top
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), // bottom
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), // left
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), // right
	}
	for _, e := range edges {
		e = e.Intersect(r).Intersect(dst.Bounds())
		if e.Empty() {
			continue
		}
		draw.Draw(dst, e, src, image.Point{}, draw.Src)
	}
}
