package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/pdf"
	"github.com/MeKo-Tech/docscan/internal/testutil"
)

// fixture is one generated photo and the page outline drawn into it.
type fixture struct {
	Name    string        `json:"name"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Corners [4][2]float64 `json:"corners,omitempty"`
	// Detectable is false for photos without a page, where scans fall back
	// to the full frame.
	Detectable bool `json:"detectable"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var (
		outDir  = flag.String("out", "", "output directory (default: <project root>/testdata/documents)")
		withPDF = flag.Bool("pdf", true, "also write a multi-page PDF of the photos")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate synthetic document photos for docscan testing.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	dir := *outDir
	if dir == "" {
		root, err := testutil.GetProjectRoot()
		if err != nil {
			slog.Error("Failed to find project root", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(root, "testdata", "documents")
	}

	slog.Info("Starting test data generation", "dir", dir)
	fixtures, images, err := generate(dir, *verbose)
	if err != nil {
		slog.Error("Failed to generate test images", "error", err)
		os.Exit(1)
	}

	if *withPDF {
		if err := writePDF(filepath.Join(dir, "photos.pdf"), images); err != nil {
			slog.Error("Failed to write PDF", "error", err)
			os.Exit(1)
		}
	}

	if err := writeManifest(filepath.Join(dir, "manifest.json"), fixtures); err != nil {
		slog.Error("Failed to write manifest", "error", err)
		os.Exit(1)
	}
	slog.Info("Test data generation completed", "photos", len(fixtures))
}

// variants returns the document photos to render.
func variants() map[string]testutil.DocumentConfig {
	base := testutil.DefaultDocumentConfig()

	straight := base
	straight.Corners = geometry.Quad{{X: 80, Y: 60}, {X: 560, Y: 60}, {X: 560, Y: 420}, {X: 80, Y: 420}}

	steep := base
	steep.Corners = geometry.Quad{{X: 200, Y: 40}, {X: 450, Y: 60}, {X: 600, Y: 450}, {X: 40, Y: 430}}

	lowContrast := base
	lowContrast.Background = color.NRGBA{150, 150, 150, 255}
	lowContrast.Paper = color.NRGBA{205, 205, 200, 255}

	portrait := base
	portrait.Size = testutil.ImageSize{Width: 480, Height: 640}
	portrait.Corners = geometry.Quad{{X: 60, Y: 80}, {X: 420, Y: 100}, {X: 400, Y: 580}, {X: 70, Y: 560}}

	return map[string]testutil.DocumentConfig{
		"skewed":       base,
		"straight":     straight,
		"steep":        steep,
		"low_contrast": lowContrast,
		"portrait":     portrait,
	}
}

func generate(dir string, verbose bool) ([]fixture, []image.Image, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var (
		fixtures []fixture
		images   []image.Image
	)
	for _, name := range []string{"skewed", "straight", "steep", "low_contrast", "portrait"} {
		cfg := variants()[name]
		img := testutil.GenerateDocumentImage(cfg)
		path := filepath.Join(dir, name+".png")
		if err := imaging.Save(img, path); err != nil {
			return nil, nil, fmt.Errorf("failed to save %s: %w", path, err)
		}
		if verbose {
			slog.Info("Generated photo", "path", path)
		}

		f := fixture{Name: name + ".png", Width: cfg.Size.Width, Height: cfg.Size.Height, Detectable: true}
		for i, p := range cfg.Corners {
			f.Corners[i] = [2]float64{p.X, p.Y}
		}
		fixtures = append(fixtures, f)
		images = append(images, img)
	}

	blank := testutil.CreateUniformImage(testutil.MediumSize.Width, testutil.MediumSize.Height, color.NRGBA{128, 128, 128, 255})
	if err := imaging.Save(blank, filepath.Join(dir, "blank.png")); err != nil {
		return nil, nil, fmt.Errorf("failed to save blank photo: %w", err)
	}
	fixtures = append(fixtures, fixture{Name: "blank.png", Width: testutil.MediumSize.Width, Height: testutil.MediumSize.Height})

	return fixtures, images, nil
}

func writePDF(path string, images []image.Image) error {
	f, err := os.Create(path) //nolint:gosec // G304: Test data generation uses controlled paths
	if err != nil {
		return err
	}
	if err := pdf.Write(f, images, pdf.PageOptions{Size: pdf.PageOriginal}); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeManifest(path string, fixtures []fixture) error {
	data, err := json.MarshalIndent(fixtures, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
