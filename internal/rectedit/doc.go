// Package rectedit implements the crop rectangle editor used to pick regions
// of interest on a frame before they are cropped from every method's output.
//
// The editor keeps a rectangle, given by two corners, consistent with a
// bounding region (the active image's width and height) and with two optional
// locks: a height/width ratio lock and a dimension lock. Callers drive it
// through nine operations that mirror the editor's input channels: moving
// either corner, typing corner 1's x or y, typing the height, width or ratio,
// and toggling the two locks.
//
// # Coordinate System
//
// Corners live on the pixel grid [0,Width]x[0,Height]. Corner1 is the top-left
// corner (inclusive) and Corner2 the bottom-right corner (exclusive), so the
// rectangle maps directly onto image.Rectangle{Min: Corner1, Max: Corner2}.
//
// # Reconciliation
//
// Every geometry change runs the same pass in a fixed order:
//
//  1. Movement: a corner dragged across the opposite one, or any corner move
//     while dimensions are locked, translates the box instead of resizing it.
//  2. Clamp: both corners are forced into the bounding region.
//  3. Dimension lock: the frozen size is restored from the corner that was
//     not edited, and the box slides back inside the region if needed.
//  4. Ratio lock: the secondary dimension is recomputed from the primary one.
//     When that overflows the region, the overflowing dimension is cut to the
//     room left and the other one recomputed from it. Values are truncated.
//  5. Minimum size: each axis keeps at least one pixel.
//
// Dimension lock takes precedence: while it is on, ratio restoration is skipped.
//
// # Input Handling
//
// Text operations never fail loudly. Malformed numbers are treated as an edit
// in progress: the previous rectangle is kept and the operation reports that
// the input was not applied. The engine itself clamps whatever it is given;
// click handlers use CheckPoint first so a click off the image is reported as
// ErrOutOfBounds rather than turned into a jump to the nearest edge.
//
// # Thread Safety
//
// An Engine is not safe for concurrent use. Hosts are expected to serialize
// calls the way a UI event loop does.
package rectedit
