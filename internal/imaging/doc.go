// Package imaging adapts decoded frames to the crop editor.
//
// It provides the pieces around the rectangle editor that touch pixels:
// the bounding region of a frame (ImageCache, GetDimensions, FrameDimensions),
// the cropped preview of the committed rectangle (Crop) and the full-frame
// view with rectangles outlined on top of it (Overlay). Editing itself lives
// in package rectedit; this package never changes a rectangle, it only reads
// one.
//
// # Coordinate System
//
// Regions use the editor's convention: (0,0) is the top-left corner of the
// image, the top-left corner of a region is inclusive and the bottom-right
// corner exclusive. Images whose bounds do not start at the origin are
// handled by offsetting regions by img.Bounds().Min.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The rendering functions are
// stateless and never modify their input image.
//
// # Output
//
// Rendered images are returned as base64-encoded PNG so they can travel in a
// JSON-RPC response unchanged.
package imaging
