// Package color provides color utilities for book covers.
package color

import (
	"fmt"
	"math/rand/v2"

	"github.com/keepsakeapp/keepsake/internal/domain"
)

// Palette is the cover designer's preset background palette, in display order.
var Palette = []string{
	"#2c2c2c", "#1e3a8a", "#14532d", "#7f1d1d", "#374151", "#475569",
	"#831843", "#713f12", "#065f46", "#1e40af", "#7c2d12", "#4c1d95",
}

// TextColors are the selectable cover text colors.
var TextColors = []string{"#ffffff", "#000000", "#fbbf24"}

// DefaultCover is the cover applied to newly created books.
func DefaultCover() domain.CoverDesign {
	return domain.CoverDesign{
		BackgroundColor: Palette[0],
		Pattern:         domain.PatternSolid,
		TextColor:       TextColors[0],
	}
}

// RandomCover picks a random palette background and pattern, with white text.
func RandomCover() domain.CoverDesign {
	return domain.CoverDesign{
		BackgroundColor: Palette[rand.IntN(len(Palette))],
		Pattern:         domain.Patterns[rand.IntN(len(domain.Patterns))],
		TextColor:       TextColors[0],
	}
}

// ForBook generates a consistent cover background for a book based on its ID.
// Uses a deterministic hash so the same book always gets the same color.
// Colors are generated in HSL with fixed saturation and lightness so covers
// stay dark enough for white text.
func ForBook(bookID string) string {
	h := 0
	for _, c := range bookID {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	hue := float64(h % 360)

	r, g, b := hslToRGB(hue, 0.45, 0.3)

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// hslToRGB converts HSL color space to RGB.
// h: hue (0-360), s: saturation (0-1), l: lightness (0-1)
// Returns RGB values (0-255).
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	h /= 360.0

	var r1, g1, b1 float64

	if s == 0 {
		// Achromatic (gray)
		r1, g1, b1 = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q

		r1 = hueToRGB(p, q, h+1.0/3.0)
		g1 = hueToRGB(p, q, h)
		b1 = hueToRGB(p, q, h-1.0/3.0)
	}

	r = uint8(r1 * 255)
	g = uint8(g1 * 255)
	b = uint8(b1 * 255)
	return
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
