package rectedit

import (
	"fmt"
	"image"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// Engine owns one rectangle, its bounding region and the editor locks.
type Engine struct {
	bounds    Bounds
	rect      Rect
	mode      Mode
	observers []Observer
}

// New returns an engine holding the default rectangle for b with both locks off.
func New(b Bounds) (*Engine, error) {
	e := &Engine{}
	if err := e.Reset(b, false); err != nil {
		return nil, err
	}
	return e, nil
}

// Reset starts a new session on b, for example after another image was
// loaded. The rectangle goes back to the default. With keepMode the locks and
// ratio survive, and a locked ratio is applied to the default rectangle.
//
// Parameters:
//   - b: The bounding region of the new image.
//   - keepMode: Whether the locks and the ratio carry over from the last session.
//
// Returns:
//   - error: Wraps ErrInvalidBounds when b has a zero or negative side. The
//     engine is left untouched in that case.
func (e *Engine) Reset(b Bounds, keepMode bool) error {
	if !b.Valid() {
		return errors.Wrapf(ErrInvalidBounds, "got %dx%d", b.Width, b.Height)
	}
	prev := e.rect
	e.bounds = b
	next := defaultRect(b)
	if !keepMode {
		e.mode = Mode{}
	}
	if e.mode.RatioLocked && !e.mode.DimensionsLocked {
		next = fixMinSize(applyRatio(next, corner1, axisX, e.mode.Ratio, b), corner1, b)
	}
	e.rect = next
	if !e.mode.RatioLocked {
		e.mode.Ratio = trackedRatio(next)
	}
	e.notify(prev)
	return nil
}

// OnChange registers fn to be called with the committed rectangle after every
// operation that changed it.
func (e *Engine) OnChange(fn Observer) {
	if fn != nil {
		e.observers = append(e.observers, fn)
	}
}

// Rect returns the committed rectangle.
func (e *Engine) Rect() Rect { return e.rect }

// Bounds returns the bounding region.
func (e *Engine) Bounds() Bounds { return e.bounds }

// Mode returns the current locks and ratio.
func (e *Engine) Mode() Mode { return e.mode }

// Readout returns the values the editor's input fields should display.
func (e *Engine) Readout() Readout {
	r := e.rect
	return Readout{
		Corner1X: strconv.Itoa(r.Corner1.X),
		Corner1Y: strconv.Itoa(r.Corner1.Y),
		Height:   strconv.Itoa(r.Height()),
		Width:    strconv.Itoa(r.Width()),
		Ratio:    fmt.Sprintf("%.4f", r.Ratio()),
	}
}

// CheckPoint returns an error wrapping ErrOutOfBounds when p is outside the
// bounding region. Click handlers call it before MoveCorner1 or MoveCorner2 so
// a click off the image is rejected instead of clamped.
//
// # Errors
//
//   - Returns ErrOutOfBounds, wrapped with the point and the region size, when
//     p.X is outside [0, width] or p.Y is outside [0, height]
func (e *Engine) CheckPoint(p image.Point) error {
	if !e.bounds.Contains(p) {
		return outOfBounds(p, e.bounds)
	}
	return nil
}

// MoveCorner1 places corner 1 at p, typically from a click on the image.
// Points outside the region are clamped.
func (e *Engine) MoveCorner1(p image.Point) Rect {
	next := e.rect
	next.Corner1 = p
	return e.commit(e.reconcile(next, corner1, axisX))
}

// MoveCorner2 places corner 2 at p.
func (e *Engine) MoveCorner2(p image.Point) Rect {
	next := e.rect
	next.Corner2 = p
	return e.commit(e.reconcile(next, corner2, axisX))
}

// SetCorner1X sets corner 1's x coordinate from text. It reports false and
// keeps the rectangle when text is not an integer.
func (e *Engine) SetCorner1X(text string) (Rect, bool) {
	v, err := parseInt(text)
	if err != nil {
		return e.rect, false
	}
	next := e.rect
	next.Corner1.X = v
	return e.commit(e.reconcile(next, corner1, axisX)), true
}

// SetCorner1Y sets corner 1's y coordinate from text.
func (e *Engine) SetCorner1Y(text string) (Rect, bool) {
	v, err := parseInt(text)
	if err != nil {
		return e.rect, false
	}
	next := e.rect
	next.Corner1.Y = v
	return e.commit(e.reconcile(next, corner1, axisY)), true
}

// SetWidth resizes the rectangle to the typed width, keeping corner 1 unless
// the box has to slide to stay inside the region. Ignored while dimensions
// are locked.
//
// Returns:
//   - Rect: The committed rectangle, changed or not.
//   - bool: False when text is not an integer or the dimensions are locked.
func (e *Engine) SetWidth(text string) (Rect, bool) {
	if e.mode.DimensionsLocked {
		return e.rect, false
	}
	v, err := parseInt(text)
	if err != nil {
		return e.rect, false
	}
	w := clampInt(v, 0, e.bounds.Width)
	if w == e.rect.Width() {
		return e.rect, true
	}
	h := e.rect.Height()
	if e.mode.RatioLocked {
		h = heightFor(w, e.mode.Ratio)
		if h > e.bounds.Height {
			h = e.bounds.Height
			w = widthFor(h, e.mode.Ratio)
		}
	}
	return e.commit(e.resize(w, h)), true
}

// SetHeight resizes the rectangle to the typed height.
func (e *Engine) SetHeight(text string) (Rect, bool) {
	if e.mode.DimensionsLocked {
		return e.rect, false
	}
	v, err := parseInt(text)
	if err != nil {
		return e.rect, false
	}
	h := clampInt(v, 0, e.bounds.Height)
	if h == e.rect.Height() {
		return e.rect, true
	}
	w := e.rect.Width()
	if e.mode.RatioLocked {
		w = widthFor(h, e.mode.Ratio)
		if w > e.bounds.Width {
			w = e.bounds.Width
			h = heightFor(w, e.mode.Ratio)
		}
	}
	return e.commit(e.resize(w, h)), true
}

// SetRatio stores the typed height/width ratio and recomputes the height from
// the current width. The ratio field is only an input while the ratio lock is
// off; with the lock on the call is ignored. With dimensions locked the ratio
// is stored but the rectangle keeps its size.
func (e *Engine) SetRatio(text string) (Rect, bool) {
	if e.mode.RatioLocked {
		return e.rect, false
	}
	v, err := parseRatio(text)
	if err != nil {
		return e.rect, false
	}
	e.mode.Ratio = v
	if e.mode.DimensionsLocked {
		return e.rect, true
	}
	w := e.rect.Width()
	h := heightFor(w, v)
	if h > e.bounds.Height {
		h = e.bounds.Height
		w = widthFor(h, v)
	}
	prev := e.rect
	e.rect = e.resize(w, h)
	e.notify(prev)
	return e.rect, true
}

// SetRatioLock toggles the ratio lock. The geometry is left alone; the ratio
// in effect is the one last typed or read from the rectangle.
func (e *Engine) SetRatioLock(locked bool) {
	e.mode.RatioLocked = locked
}

// SetDimensionsLock toggles the dimension lock. While it is on, corner moves
// translate the rectangle and width/height edits are ignored.
func (e *Engine) SetDimensionsLock(locked bool) {
	e.mode.DimensionsLocked = locked
}

// resize gives the rectangle a w x h size with corner 1 kept in place when
// it fits, otherwise the box slides back inside the region.
func (e *Engine) resize(w, h int) Rect {
	var r Rect
	r.Corner1.X, r.Corner2.X = fitSpan(e.rect.Corner1.X, w, e.bounds.Width)
	r.Corner1.Y, r.Corner2.Y = fitSpan(e.rect.Corner1.Y, h, e.bounds.Height)
	return fixMinSize(r, corner1, e.bounds)
}

func (e *Engine) commit(next Rect) Rect {
	prev := e.rect
	e.rect = next
	if !e.mode.RatioLocked {
		e.mode.Ratio = trackedRatio(next)
	}
	e.notify(prev)
	return next
}

// trackedRatio is the ratio the read-out shows for r, parsed back from its
// four-decimal text. Locking then uses exactly the value the user saw.
func trackedRatio(r Rect) float64 {
	return math.Round(r.Ratio()*1e4) / 1e4
}

func (e *Engine) notify(prev Rect) {
	if prev == e.rect {
		return
	}
	for _, fn := range e.observers {
		fn(e.rect)
	}
}
