package validation

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Field bounds for the persisted document. These mirror the limits the store
// adapter enforces before any remote write.
const (
	MaxTextLength     = 1000
	MaxBookNameLength = 100
	MaxCaptionLength  = 500
	MaxCaptionWords   = 20
	MaxCategoryLength = 50
)

// categoryFolder normalizes category names for matching (case and
// compatibility folding, so "Café" and "café" compare equal).
var categoryFolder = cases.Fold()

// SanitizeText strips markup from user text: tags are dropped, entities are
// decoded, stray angle brackets are removed, whitespace is trimmed and the
// result is truncated to MaxTextLength runes. Applying it twice is a no-op.
func SanitizeText(text string) string {
	stripped := stripTags(text)

	// Remove angle brackets the tokenizer left behind (unterminated tags,
	// bare comparisons).
	stripped = strings.Map(func(r rune) rune {
		if r == '<' || r == '>' {
			return -1
		}
		return r
	}, stripped)

	stripped = strings.TrimSpace(stripped)

	if utf8.RuneCountInString(stripped) > MaxTextLength {
		runes := []rune(stripped)
		stripped = string(runes[:MaxTextLength])
	}

	// Trim again: truncation can expose trailing whitespace, and idempotence
	// requires a second pass to change nothing.
	return strings.TrimSpace(stripped)
}

// stripTags walks the HTML tokenizer and keeps only text content.
func stripTags(text string) string {
	if !strings.ContainsAny(text, "<>&") {
		return text
	}

	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(text))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; either way we keep what we have.
			return b.String()
		case html.TextToken:
			b.Write(tokenizer.Text())
		}
	}
}

// ValidateBookName reports whether a book name is within 1-100 characters.
func ValidateBookName(name string) bool {
	length := utf8.RuneCountInString(name)
	return length >= 1 && length <= MaxBookNameLength
}

// ValidateCaption reports whether a caption is within the 500-character bound.
func ValidateCaption(caption string) bool {
	return utf8.RuneCountInString(caption) <= MaxCaptionLength
}

// CaptionWordCount counts whitespace-separated words in a caption.
func CaptionWordCount(caption string) int {
	return len(strings.Fields(caption))
}

// ValidateCaptionWords reports whether a caption is within the 20-word bound.
// This gate runs before the character-length check.
func ValidateCaptionWords(caption string) bool {
	return CaptionWordCount(caption) <= MaxCaptionWords
}

// ValidateCategory reports whether a category name is within 1-50 characters.
// An absent page reference is the empty string and is checked before this.
func ValidateCategory(category string) bool {
	length := utf8.RuneCountInString(category)
	return length >= 1 && length <= MaxCategoryLength
}

// NormalizeCategory folds a category name for matching. Page-to-category
// references compare through this so renames and lookups are
// case-insensitive.
func NormalizeCategory(category string) string {
	return categoryFolder.String(norm.NFKC.String(strings.TrimSpace(category)))
}

// ValidateImageSize reports whether an encoded image payload fits under the
// given megabyte ceiling. The decoded size is estimated from the encoded
// length (base64 expands by 4/3), so no decode happens here.
func ValidateImageSize(encoded string, maxSizeMB int) bool {
	estimatedBytes := len(encoded) * 3 / 4
	return estimatedBytes <= maxSizeMB<<20
}
