package rectedit

import (
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type corner int

const (
	corner1 corner = iota + 1
	corner2
)

// axis names the dimension an operation primarily edits: X for width, Y for height.
type axis int

const (
	axisX axis = iota
	axisY
)

// reconcile restores every invariant after next was produced from the
// committed rectangle by moving one corner.
func (e *Engine) reconcile(next Rect, moved corner, primary axis) Rect {
	w0, h0 := e.rect.Width(), e.rect.Height()
	locked := e.mode.DimensionsLocked

	// A corner pushed past the opposite one means the user wants the box moved.
	if moved == corner1 {
		if next.Corner1.X >= next.Corner2.X || locked {
			next.Corner2.X = next.Corner1.X + w0
		}
		if next.Corner1.Y >= next.Corner2.Y || locked {
			next.Corner2.Y = next.Corner1.Y + h0
		}
	} else {
		if next.Corner1.X >= next.Corner2.X || locked {
			next.Corner1.X = next.Corner2.X - w0
		}
		if next.Corner1.Y >= next.Corner2.Y || locked {
			next.Corner1.Y = next.Corner2.Y - h0
		}
	}

	next = clampRect(next, e.bounds)

	switch {
	case locked:
		next = restoreSize(next, moved, w0, h0, e.bounds)
	case e.mode.RatioLocked:
		next = applyRatio(next, moved, primary, e.mode.Ratio, e.bounds)
	}
	return fixMinSize(next, moved, e.bounds)
}

func clampRect(r Rect, b Bounds) Rect {
	r.Corner1 = clampPoint(r.Corner1, b)
	r.Corner2 = clampPoint(r.Corner2, b)
	return r
}

func clampPoint(p image.Point, b Bounds) image.Point {
	return image.Pt(clampInt(p.X, 0, b.Width), clampInt(p.Y, 0, b.Height))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// restoreSize re-derives the edited corner from the other one so the box
// keeps its frozen w x h size, then slides it back inside b.
func restoreSize(r Rect, moved corner, w, h int, b Bounds) Rect {
	if moved == corner1 {
		r.Corner1 = r.Corner2.Sub(image.Pt(w, h))
	} else {
		r.Corner2 = r.Corner1.Add(image.Pt(w, h))
	}
	r.Corner1.X, r.Corner2.X = fitSpan(r.Corner1.X, w, b.Width)
	r.Corner1.Y, r.Corner2.Y = fitSpan(r.Corner1.Y, h, b.Height)
	return r
}

// fitSpan places a span of the given size starting at lo inside [0, limit],
// shifting it as little as possible. A span longer than limit is cut to it.
func fitSpan(lo, size, limit int) (int, int) {
	if size > limit {
		size = limit
	}
	if lo < 0 {
		lo = 0
	}
	if lo+size > limit {
		lo = limit - size
	}
	return lo, lo + size
}

// applyRatio recomputes the secondary dimension from the primary one. The
// moved corner stays put and the opposite corner follows. If the result would
// leave b, the secondary dimension takes the room that is left and the primary
// one is recomputed from it.
func applyRatio(r Rect, moved corner, primary axis, ratio float64, b Bounds) Rect {
	w, h := r.Width(), r.Height()
	if moved == corner1 {
		if primary == axisX {
			h = heightFor(w, ratio)
			if r.Corner1.Y+h > b.Height {
				h = b.Height - r.Corner1.Y
				w = widthFor(h, ratio)
			}
		} else {
			w = widthFor(h, ratio)
			if r.Corner1.X+w > b.Width {
				w = b.Width - r.Corner1.X
				h = heightFor(w, ratio)
			}
		}
		r.Corner2 = r.Corner1.Add(image.Pt(w, h))
		return r
	}

	if primary == axisX {
		h = heightFor(w, ratio)
		if r.Corner2.Y-h < 0 {
			h = r.Corner2.Y
			w = widthFor(h, ratio)
		}
	} else {
		w = widthFor(h, ratio)
		if r.Corner2.X-w < 0 {
			w = r.Corner2.X
			h = heightFor(w, ratio)
		}
	}
	r.Corner1 = r.Corner2.Sub(image.Pt(w, h))
	return r
}

func heightFor(w int, ratio float64) int { return truncate(float64(w) * ratio) }

func widthFor(h int, ratio float64) int { return truncate(float64(h) / ratio) }

// truncate rounds toward zero, saturating at the int32 range so extreme
// ratios still land on the clamping path.
func truncate(f float64) int {
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	if f <= math.MinInt32 {
		return math.MinInt32
	}
	return int(f)
}

// fixMinSize grows an empty axis to one pixel away from the anchored corner,
// pushing it inward when the anchor sits on the region edge.
func fixMinSize(r Rect, anchor corner, b Bounds) Rect {
	keepLo := anchor == corner1
	r.Corner1.X, r.Corner2.X = minSpan(r.Corner1.X, r.Corner2.X, b.Width, keepLo)
	r.Corner1.Y, r.Corner2.Y = minSpan(r.Corner1.Y, r.Corner2.Y, b.Height, keepLo)
	return r
}

func minSpan(lo, hi, limit int, keepLo bool) (int, int) {
	if hi-lo >= 1 {
		return lo, hi
	}
	if keepLo {
		hi = lo + 1
		if hi > limit {
			return limit - 1, limit
		}
		return lo, hi
	}
	lo = hi - 1
	if lo < 0 {
		return 0, 1
	}
	return lo, hi
}

func parseInt(text string) (int, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "parse integer %q", text)
	}
	return int(v), nil
}

func parseRatio(text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse ratio %q", text)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, errors.Errorf("ratio %q must be a positive number", text)
	}
	return v, nil
}
