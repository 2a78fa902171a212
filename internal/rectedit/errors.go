package rectedit

import (
	"image"

	"github.com/pkg/errors"
)

var (
	// ErrOutOfBounds is returned when a corner move targets a point outside
	// the bounding region.
	ErrOutOfBounds = errors.New("point outside bounding region")

	// ErrInvalidBounds is returned when a bounding region is smaller than 1x1.
	ErrInvalidBounds = errors.New("bounding region must be at least 1x1")
)

func outOfBounds(p image.Point, b Bounds) error {
	return errors.Wrapf(ErrOutOfBounds, "point (%d,%d) not within %dx%d", p.X, p.Y, b.Width, b.Height)
}
