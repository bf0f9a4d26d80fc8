// Package codec turns image containers into decoded images and encodes
// scanned pages back into PNG or JPEG.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Format is an output encoding.
type Format string

// Supported output formats.
const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 90

// ErrUnsupportedFormat is returned for unknown output formats and
// unrecognized input containers.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// SupportedImageExtensions lists file extensions accepted as scan input.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".tif", ".tiff"}

// AllowedContentTypes lists upload MIME types that can be decoded.
var AllowedContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/bmp",
	"image/webp",
	"image/tiff",
}

// ParseFormat accepts "png", "jpeg" or "jpg" in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png", "":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Extension returns the file extension of f including the dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return ".png"
}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedImageExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// IsAllowedContentType reports whether an upload's MIME type is decodable.
func IsAllowedContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	if ct == "image/jpg" {
		ct = "image/jpeg"
	}
	for _, a := range AllowedContentTypes {
		if ct == a {
			return true
		}
	}
	return false
}

// Metadata captures lightweight information about a decoded input.
type Metadata struct {
	Path      string
	Format    string
	SizeBytes int64
	Width     int
	Height    int
}

// Decode reads a complete image container from r. EXIF orientation of JPEG
// input is applied so the pixels appear upright.
func Decode(r io.Reader) (image.Image, Metadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Metadata{}, &DecodeError{Op: "read", Err: err}
	}
	return decodeBytes(data)
}

func decodeBytes(data []byte) (image.Image, Metadata, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			err = ErrUnsupportedFormat
		}
		return nil, Metadata{}, &DecodeError{Op: "sniff", Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, Metadata{}, &DecodeError{Op: "sniff", Format: format, Err: fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, Metadata{}, &DecodeError{Op: "decode", Format: format, Err: err}
	}
	b := img.Bounds()
	return img, Metadata{Format: format, SizeBytes: int64(len(data)), Width: b.Dx(), Height: b.Dy()}, nil
}

// LoadImage opens and decodes an image file.
func LoadImage(path string) (image.Image, Metadata, error) {
	if path == "" {
		return nil, Metadata{}, &DecodeError{Op: "load", Err: errors.New("empty path")}
	}
	if !IsSupportedImage(path) {
		return nil, Metadata{}, &DecodeError{Op: "load", Err: fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))}
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: reading a user-provided image path is expected
	if err != nil {
		return nil, Metadata{}, &DecodeError{Op: "load", Err: err}
	}
	img, meta, err := decodeBytes(data)
	if err != nil {
		return nil, Metadata{}, err
	}
	meta.Path = path
	return img, meta, nil
}

// Encode writes img as f. Quality applies to JPEG only and is clamped to 1..100.
func Encode(w io.Writer, img image.Image, f Format, quality int) error {
	switch f {
	case FormatJPEG:
		if quality <= 0 {
			quality = DefaultQuality
		}
		quality = min(max(quality, 1), 100)
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatPNG:
		return imaging.Encode(w, img, imaging.PNG)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}
