package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MeKo-Tech/docscan/internal/codec"
	"github.com/MeKo-Tech/docscan/internal/pdf"
)

// scanInput is one image to scan. Images extracted from a PDF are staged
// in a temporary directory; Dir and Name then refer to the PDF.
type scanInput struct {
	Path   string // file handed to the scanner
	Source string // what the user named, e.g. "doc.pdf#page=2"
	Dir    string // directory outputs are written to by default
	Name   string // output base name without extension
}

// inputSet collects scan inputs and owns the staging directory.
type inputSet struct {
	inputs  []scanInput
	staging string
}

func (s *inputSet) paths() []string {
	out := make([]string, len(s.inputs))
	for i, in := range s.inputs {
		out[i] = in.Path
	}
	return out
}

func (s *inputSet) cleanup() {
	if s.staging != "" {
		_ = os.RemoveAll(s.staging)
	}
}

// collectInputs expands directories into their supported files and
// extracts embedded page images from PDFs.
func collectInputs(args []string, pageRange string) (*inputSet, error) {
	set := &inputSet{}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			set.cleanup()
			return nil, fmt.Errorf("input %s: %w", arg, err)
		}
		if info.IsDir() {
			err = set.addDir(arg, pageRange)
		} else {
			err = set.addFile(arg, pageRange)
		}
		if err != nil {
			set.cleanup()
			return nil, err
		}
	}
	if len(set.inputs) == 0 {
		return nil, errors.New("no supported input files found")
	}
	return set, nil
}

func (s *inputSet) addDir(dir, pageRange string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if codec.IsSupportedImage(e.Name()) || isPDF(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, n := range names {
		if err := s.addFile(filepath.Join(dir, n), pageRange); err != nil {
			return err
		}
	}
	return nil
}

func (s *inputSet) addFile(path, pageRange string) error {
	if isPDF(path) {
		return s.addPDF(path, pageRange)
	}
	if !codec.IsSupportedImage(path) {
		return fmt.Errorf("unsupported input %s (supported: %s, .pdf)", path, strings.Join(codec.SupportedImageExtensions, ", "))
	}
	s.inputs = append(s.inputs, scanInput{
		Path:   path,
		Source: path,
		Dir:    filepath.Dir(path),
		Name:   baseName(path),
	})
	return nil
}

func (s *inputSet) addPDF(path, pageRange string) error {
	images, err := pdf.ExtractImages(path, pageRange)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("no images found in %s", path)
	}
	if s.staging == "" {
		if s.staging, err = os.MkdirTemp("", "docscan-pdf-*"); err != nil {
			return fmt.Errorf("create staging directory: %w", err)
		}
	}

	multi := len(images) > 1
	for i, pi := range images {
		name := fmt.Sprintf("%s_p%d", baseName(path), pi.Page)
		if multi {
			name = fmt.Sprintf("%s_%d", name, pi.Index)
		}
		staged := filepath.Join(s.staging, fmt.Sprintf("%03d_%d.png", len(s.inputs), i))
		if err := writeImageFile(staged, pi); err != nil {
			return err
		}
		s.inputs = append(s.inputs, scanInput{
			Path:   staged,
			Source: fmt.Sprintf("%s#page=%d", path, pi.Page),
			Dir:    filepath.Dir(path),
			Name:   name,
		})
	}
	return nil
}

func writeImageFile(path string, pi pdf.PageImage) error {
	f, err := os.Create(path) // #nosec G304 -- path is inside our staging directory
	if err != nil {
		return fmt.Errorf("stage page %d: %w", pi.Page, err)
	}
	if err := codec.Encode(f, pi.Image, codec.FormatPNG, 0); err != nil {
		_ = f.Close()
		return fmt.Errorf("stage page %d: %w", pi.Page, err)
	}
	return f.Close()
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func baseName(path string) string {
	b := filepath.Base(path)
	return strings.TrimSuffix(b, filepath.Ext(b))
}
