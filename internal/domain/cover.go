package domain

// Pattern is a cover background pattern.
type Pattern string

// Cover patterns supported by the cover designer.
const (
	PatternSolid    Pattern = "solid"
	PatternGradient Pattern = "gradient"
	PatternDots     Pattern = "dots"
	PatternStripes  Pattern = "stripes"
	PatternGrid     Pattern = "grid"
	PatternDiagonal Pattern = "diagonal"
)

// Patterns lists every valid cover pattern, in designer display order.
var Patterns = []Pattern{
	PatternSolid,
	PatternGradient,
	PatternDots,
	PatternStripes,
	PatternGrid,
	PatternDiagonal,
}

// Valid reports whether p is a known pattern.
func (p Pattern) Valid() bool {
	switch p {
	case PatternSolid, PatternGradient, PatternDots, PatternStripes, PatternGrid, PatternDiagonal:
		return true
	}
	return false
}

// CoverDesign is a user-designed book cover style.
type CoverDesign struct {
	BackgroundColor string  `json:"backgroundColor"`
	Pattern         Pattern `json:"pattern"`
	TextColor       string  `json:"textColor"`
}
