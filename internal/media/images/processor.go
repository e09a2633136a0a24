// Package images provides photo validation, compression, and storage.
package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"log/slog"
	"net/http"
	"strings"

	"github.com/keepsakeapp/keepsake/internal/errors"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// MaxUploadBytes is the raw-size ceiling for an uploaded photo.
const MaxUploadBytes = 5 << 20 // 5 MiB

// acceptedTypes are the sniffed MIME types a photo upload may have.
// GIF is deliberately absent: the upload pipeline accepts JPEG, PNG, and
// WebP only.
var acceptedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Options controls photo compression.
type Options struct {
	// MaxWidth is the widest a stored photo may be; wider photos are
	// downscaled preserving aspect ratio. Photos are never upscaled.
	MaxWidth int
	// Quality is the JPEG re-encode quality (1-100).
	Quality int
}

// DefaultOptions matches the app's upload pipeline defaults.
func DefaultOptions() Options {
	return Options{MaxWidth: 1200, Quality: 85}
}

// Processor validates and compresses uploaded photos.
type Processor struct {
	opts   Options
	logger *slog.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(opts Options, logger *slog.Logger) *Processor {
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = DefaultOptions().MaxWidth
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultOptions().Quality
	}
	return &Processor{
		opts:   opts,
		logger: logger,
	}
}

// Validate checks that data is an acceptable photo upload: within the size
// ceiling, a supported image type by content sniffing, and decodable with a
// nonzero area.
func (p *Processor) Validate(data []byte) error {
	if len(data) == 0 {
		return errors.Validation("image data cannot be empty")
	}
	if len(data) > MaxUploadBytes {
		return errors.FileTooLargef("image is %d bytes, maximum is %d", len(data), MaxUploadBytes)
	}

	contentType := http.DetectContentType(data)
	if !acceptedTypes[contentType] {
		return errors.InvalidFileTypef("unsupported image type %q", contentType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalidFileType, "decode image")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.InvalidFileTypef("image has invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return nil
}

// Compress re-encodes a photo as JPEG, downscaling to the configured maximum
// width when the source is wider. Smaller photos keep their dimensions.
func (p *Processor) Compress(data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidFileType, "decode image")
	}

	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	if srcWidth > p.opts.MaxWidth {
		dstWidth := p.opts.MaxWidth
		dstHeight := (srcHeight * dstWidth) / srcWidth
		if dstHeight < 1 {
			dstHeight = 1
		}

		dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst

		p.logger.Debug("downscaled photo",
			"format", format,
			"from", fmt.Sprintf("%dx%d", srcWidth, srcHeight),
			"to", fmt.Sprintf("%dx%d", dstWidth, dstHeight),
		)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.opts.Quality}); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encode jpeg")
	}
	return buf.Bytes(), nil
}

// Dimensions returns the pixel dimensions of an encoded image.
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.CodeInvalidFileType, "decode image")
	}
	return cfg.Width, cfg.Height, nil
}

// EncodeDataURI wraps raw image bytes as a base64 data URI using the sniffed
// content type.
func EncodeDataURI(data []byte) string {
	contentType := http.DetectContentType(data)
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI decodes a base64 image data URI into raw bytes and its
// declared MIME type.
func ParseDataURI(uri string) (data []byte, mimeType string, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", errors.Validation("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.Validation("malformed data URI")
	}
	mimeType, encoding, hasEncoding := strings.Cut(meta, ";")
	if !hasEncoding || encoding != "base64" {
		return nil, "", errors.Validation("data URI must be base64 encoded")
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", errors.Wrap(err, errors.CodeValidation, "decode data URI payload")
	}
	return data, mimeType, nil
}

// ValidateDataURI parses a data URI and validates the embedded photo.
// Remote URLs (http/https) are accepted as-is; the browser loads those.
func (p *Processor) ValidateDataURI(uri string) error {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return nil
	}
	data, mimeType, err := ParseDataURI(uri)
	if err != nil {
		return err
	}
	if !acceptedTypes[mimeType] {
		return errors.InvalidFileTypef("unsupported image type %q", mimeType)
	}
	return p.Validate(data)
}
