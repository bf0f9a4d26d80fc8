// Package pdf wraps scanned pages into PDF documents and pulls page images
// back out of PDFs so they can be scanned.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/MeKo-Tech/docscan/internal/codec"
)

// PageSize selects the PDF page geometry.
type PageSize string

const (
	// PageOriginal sizes each page to its image, one point per pixel.
	PageOriginal PageSize = "original"
	PageA4       PageSize = "a4"
	PageLetter   PageSize = "letter"
)

// DefaultMargin is the margin in points used for standard page sizes.
const DefaultMargin = 36.0

// EmbedQuality is the JPEG quality of embedded page images.
const EmbedQuality = 92

// Dim is a width and height in points.
type Dim struct {
	Width  float64
	Height float64
}

var standardSizes = map[PageSize]Dim{
	PageA4:     {Width: 595.28, Height: 841.89},
	PageLetter: {Width: 612, Height: 792},
}

// ParsePageSize accepts original, a4 or letter in any case.
func ParsePageSize(s string) (PageSize, error) {
	switch ps := PageSize(strings.ToLower(strings.TrimSpace(s))); ps {
	case "":
		return PageA4, nil
	case PageOriginal, PageA4, PageLetter:
		return ps, nil
	default:
		return "", fmt.Errorf("unknown page size %q (want original, a4 or letter)", s)
	}
}

// PageOptions controls page layout.
type PageOptions struct {
	Size   PageSize
	Margin float64 // points; ignored for PageOriginal
}

// DefaultPageOptions returns A4 with a half-inch margin.
func DefaultPageOptions() PageOptions {
	return PageOptions{Size: PageA4, Margin: DefaultMargin}
}

// Placement is where an image lands on its page.
type Placement struct {
	Page  Dim
	Scale float64
	X, Y  float64 // lower-left corner of the drawn image
}

// Layout computes the page for a w×h image. Standard sizes are turned to
// landscape for landscape images, and the image is fitted inside the
// margins without upscaling and centered.
func Layout(w, h int, opts PageOptions) (Placement, error) {
	if w <= 0 || h <= 0 {
		return Placement{}, fmt.Errorf("invalid image size %dx%d", w, h)
	}
	iw, ih := float64(w), float64(h)
	if opts.Size == PageOriginal {
		return Placement{Page: Dim{Width: iw, Height: ih}, Scale: 1}, nil
	}
	page, ok := standardSizes[opts.Size]
	if !ok {
		return Placement{}, fmt.Errorf("unknown page size %q", opts.Size)
	}
	imageLandscape := iw > ih
	pageLandscape := page.Width > page.Height
	if (imageLandscape && !pageLandscape) || (ih > iw && pageLandscape) {
		page.Width, page.Height = page.Height, page.Width
	}

	maxW := page.Width - 2*opts.Margin
	maxH := page.Height - 2*opts.Margin
	if maxW <= 0 || maxH <= 0 {
		return Placement{}, fmt.Errorf("margin %.1f leaves no room on %s page", opts.Margin, opts.Size)
	}
	scale := min(maxW/iw, maxH/ih, 1)
	return Placement{
		Page:  page,
		Scale: scale,
		X:     (page.Width - iw*scale) / 2,
		Y:     (page.Height - ih*scale) / 2,
	}, nil
}

// importDescription renders a placement in pdfcpu's import syntax.
func importDescription(p Placement, opts PageOptions) string {
	if opts.Size == PageOriginal {
		return "position:full"
	}
	return fmt.Sprintf("dimensions:%.2f %.2f, position:c, scalefactor:%.4f abs", p.Page.Width, p.Page.Height, p.Scale)
}

var disableConfigDir sync.Once

// Write renders one page per image into a PDF written to w. Images are
// embedded as JPEG.
func Write(w io.Writer, imgs []image.Image, opts PageOptions) error {
	if len(imgs) == 0 {
		return errors.New("no pages to write")
	}
	disableConfigDir.Do(api.DisableConfigDir)

	var doc []byte
	for i, img := range imgs {
		if img == nil {
			return fmt.Errorf("page %d: nil image", i+1)
		}
		b := img.Bounds()
		place, err := Layout(b.Dx(), b.Dy(), opts)
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}

		var jpg bytes.Buffer
		if err := codec.Encode(&jpg, img, codec.FormatJPEG, EmbedQuality); err != nil {
			return fmt.Errorf("page %d: encode: %w", i+1, err)
		}

		imp, err := api.Import(importDescription(place, opts), types.POINTS)
		if err != nil {
			return fmt.Errorf("page %d: import settings: %w", i+1, err)
		}

		var rs io.ReadSeeker
		if doc != nil {
			rs = bytes.NewReader(doc)
		}
		var out bytes.Buffer
		if err := api.ImportImages(rs, &out, []io.Reader{&jpg}, imp, nil); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
		doc = out.Bytes()
	}

	_, err := w.Write(doc)
	return err
}

// WritePage renders a single-page PDF.
func WritePage(w io.Writer, img image.Image, opts PageOptions) error {
	return Write(w, []image.Image{img}, opts)
}

// PageCount returns the number of pages of a PDF document.
func PageCount(r io.ReadSeeker) (int, error) {
	return api.PageCount(r, nil)
}
