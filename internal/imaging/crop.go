package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
)

// PreviewOptions controls how a cropped preview is rendered.
type PreviewOptions struct {
	// Scale resizes the crop; 1.0 (or any value <= 0) keeps the crop's size.
	Scale float64
	// BorderWidth is the padding drawn around the crop, 0 for none.
	BorderWidth int
	// BorderColor fills the padding. Nil means black.
	BorderColor color.Color
}

// CropResult contains the rendered preview.
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// MaxPreviewPixels caps the size of a rendered preview, border included.
const MaxPreviewPixels = 1 << 26

// Crop extracts region from img and renders it as a PNG preview.
//
// Parameters:
//   - img: The frame to crop from. Its bounds need not start at (0,0).
//   - region: The crop, relative to the image origin. Min is inclusive, Max
//     exclusive, as in the editor's corners.
//   - opts: Scale and border. The crop is resized first and the border added
//     afterwards, so BorderWidth is in output pixels regardless of Scale.
//
// Returns:
//   - *CropResult: The preview as base64-encoded PNG with its final size.
//   - error: Non-nil if the region is rejected or the preview is too large.
//
// # Errors
//
// Crop fails when region is empty, when it does not lie inside img, when
// BorderWidth is negative, or when the output would exceed MaxPreviewPixels.
// The size check runs before any pixels are allocated.
func Crop(img image.Image, region image.Rectangle, opts PreviewOptions) (*CropResult, error) {
	bounds := img.Bounds()

	if region.Empty() {
		return nil, fmt.Errorf("invalid crop region %v: x1 must be < x2, y1 must be < y2", region)
	}
	abs := region.Add(bounds.Min)
	if !abs.In(bounds) {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds %dx%d",
			region.Min.X, region.Min.Y, region.Max.X, region.Max.Y, bounds.Dx(), bounds.Dy())
	}
	if opts.BorderWidth < 0 {
		return nil, fmt.Errorf("border width must be >= 0, got %d", opts.BorderWidth)
	}

	outW, outH := abs.Dx(), abs.Dy()
	resize := opts.Scale != 1.0 && opts.Scale > 0
	fw, fh := float64(outW), float64(outH)
	if resize {
		fw *= opts.Scale
		fh *= opts.Scale
	}
	pad := 2 * float64(opts.BorderWidth)
	if (max(1, fw)+pad)*(max(1, fh)+pad) > MaxPreviewPixels {
		return nil, fmt.Errorf("preview of %.0fx%.0f pixels exceeds the %d pixel limit", fw+pad, fh+pad, MaxPreviewPixels)
	}
	if resize {
		outW = max(1, int(fw))
		outH = max(1, int(fh))
	}

	var out image.Image = imaging.Crop(img, abs)
	if resize {
		out = imaging.Resize(out, outW, outH, imaging.Lanczos)
	}

	if opts.BorderWidth > 0 {
		out = addBorder(out, opts.BorderWidth, opts.BorderColor)
	}

	encoded, err := encodePNG(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// addBorder pads img on every side with width pixels of c.
func addBorder(img image.Image, width int, c color.Color) *image.NRGBA {
	if c == nil {
		c = color.Black
	}
	b := img.Bounds()
	canvas := imaging.New(b.Dx()+2*width, b.Dy()+2*width, c)
	return imaging.Paste(canvas, img, image.Pt(width, width))
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
