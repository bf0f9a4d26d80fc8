package pdf

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/docscan/internal/codec"
)

// PageImage is an image embedded in a PDF page.
type PageImage struct {
	Page  int
	Index int
	Image image.Image
}

// ExtractImages pulls the embedded images of the selected pages (all pages
// for an empty range) out of a PDF file, ordered by page and position.
func ExtractImages(filename, pageRange string) ([]PageImage, error) {
	pageNumbers, err := ParsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}
	disableConfigDir.Do(api.DisableConfigDir)

	tempDir, err := os.MkdirTemp("", "docscan-extract-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var selected []string
	for _, n := range pageNumbers {
		selected = append(selected, strconv.Itoa(n))
	}
	if err := api.ExtractImagesFile(filename, tempDir, selected, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}
	return collectExtractedImages(tempDir)
}

// collectExtractedImages loads pdfcpu's per-image files. Unreadable files
// and names without a page number are skipped.
func collectExtractedImages(dir string) ([]PageImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []PageImage
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		page, idx, err := parseExtractedName(e.Name())
		if err != nil {
			continue
		}
		img, _, err := codec.LoadImage(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, PageImage{Page: page, Index: idx, Image: img})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// parseExtractedName reads the page number and image index from names
// such as "scan_1_Im0.jpg" or "page_2_image_3.png": the first purely
// numeric field after the base name is the page, the trailing digits of
// the last later field are the index.
func parseExtractedName(name string) (page, index int, err error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(base, "_")
	for i := 1; i < len(parts); i++ {
		p, convErr := strconv.Atoi(parts[i])
		if convErr != nil || p < 1 {
			continue
		}
		if i+1 < len(parts) {
			index = trailingNumber(parts[len(parts)-1])
		}
		return p, index, nil
	}
	return 0, 0, errors.New("no page number in extracted image name")
}

func trailingNumber(s string) int {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	n, _ := strconv.Atoi(s[i:])
	return n
}

// ParsePageRange parses a page selection like "1-5" or "1,3,5". An empty
// string selects all pages and yields nil.
func ParsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

func parseRangeToken(part string) ([]int, error) {
	if !strings.Contains(part, "-") {
		page, err := strconv.Atoi(part)
		if err != nil || page < 1 {
			return nil, fmt.Errorf("invalid page number: %s", part)
		}
		return []int{page}, nil
	}
	bounds := strings.Split(part, "-")
	if len(bounds) != 2 {
		return nil, fmt.Errorf("invalid range format: %s", part)
	}
	start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
	if err != nil || start < 1 {
		return nil, fmt.Errorf("invalid start page: %s", bounds[0])
	}
	end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid end page: %s", bounds[1])
	}
	if start > end {
		return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
	}
	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out, nil
}
