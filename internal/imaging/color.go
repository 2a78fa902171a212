package imaging

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultPalette is the colour sequence used for box outlines and preview
// borders when none is configured. Patch i of a frame uses
// DefaultPalette[i%8], the same colour in every method's image.
var DefaultPalette = []string{"red", "green", "blue", "yellow", "cyan", "magenta", "white", "black"}

var namedColors = map[string]string{
	"red":     "#ff0000",
	"green":   "#008000",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"cyan":    "#00ffff",
	"magenta": "#ff00ff",
	"white":   "#ffffff",
	"black":   "#000000",
	"orange":  "#ffa500",
	"purple":  "#800080",
	"gray":    "#808080",
	"lime":    "#00ff00",
}

// ParseColor accepts one of the named colours above or a hex colour in
// "#rrggbb" or "#rgb" form. Matching is case-insensitive.
func ParseColor(s string) (color.Color, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if hex, ok := namedColors[key]; ok {
		key = hex
	}

	c, err := colorful.Hex(key)
	if err != nil {
		return nil, fmt.Errorf("unknown color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// PaletteColor returns the colour for patch index i, cycling through
// palette. An empty palette falls back to DefaultPalette.
func PaletteColor(palette []string, i int) (color.Color, error) {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	if i < 0 {
		return nil, fmt.Errorf("palette index must be >= 0, got %d", i)
	}
	return ParseColor(palette[i%len(palette)])
}

// HexString formats c as "#RRGGBB", ignoring alpha.
func HexString(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02X%02X%02X", n.R, n.G, n.B)
}
