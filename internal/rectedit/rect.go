package rectedit

import (
	"image"
)

// Bounds is the bounding region a rectangle must stay within, normally the
// dimensions of the active image.
type Bounds struct {
	Width  int
	Height int
}

// Valid reports whether both dimensions are at least one pixel.
func (b Bounds) Valid() bool {
	return b.Width >= 1 && b.Height >= 1
}

// Contains reports whether p lies on the corner grid [0,Width]x[0,Height].
// The far edges are included because Corner2 is exclusive.
func (b Bounds) Contains(p image.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= b.Width && p.Y <= b.Height
}

// Rect is the edited rectangle.
type Rect struct {
	Corner1 image.Point // top-left, inclusive
	Corner2 image.Point // bottom-right, exclusive
}

// Width returns the horizontal extent.
func (r Rect) Width() int { return r.Corner2.X - r.Corner1.X }

// Height returns the vertical extent.
func (r Rect) Height() int { return r.Corner2.Y - r.Corner1.Y }

// Ratio returns height/width, or 0 for a rectangle without width.
func (r Rect) Ratio() float64 {
	if r.Width() == 0 {
		return 0
	}
	return float64(r.Height()) / float64(r.Width())
}

// Image returns the rectangle as an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rectangle{Min: r.Corner1, Max: r.Corner2}
}

// Box returns the rectangle as [x1, y1, x2, y2], the crop box layout used by
// the patch log.
func (r Rect) Box() [4]int {
	return [4]int{r.Corner1.X, r.Corner1.Y, r.Corner2.X, r.Corner2.Y}
}

// In reports whether r is a non-empty rectangle fully inside b.
func (r Rect) In(b Bounds) bool {
	return r.Corner1.X >= 0 && r.Corner1.Y >= 0 &&
		r.Corner1.X < r.Corner2.X && r.Corner1.Y < r.Corner2.Y &&
		r.Corner2.X <= b.Width && r.Corner2.Y <= b.Height
}

// Mode holds the editor locks.
type Mode struct {
	RatioLocked bool
	// Ratio is height/width. While RatioLocked is false it follows the
	// committed rectangle rounded to four decimals, as the read-out shows
	// it, unless it was just typed in with SetRatio.
	Ratio            float64
	DimensionsLocked bool
}

// Readout is the text shown in the editor's five input fields.
type Readout struct {
	Corner1X string
	Corner1Y string
	Height   string
	Width    string
	Ratio    string
}

// Observer receives the committed rectangle after an operation changed it.
type Observer func(Rect)

// defaultRect is the rectangle a fresh session starts with: a square a
// quarter of the shorter side, anchored at the origin.
func defaultRect(b Bounds) Rect {
	s := min(b.Width, b.Height) / 4
	if s < 1 {
		s = 1
	}
	return Rect{Corner2: image.Pt(s, s)}
}
