package support

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/docscan/internal/codec"
	"github.com/MeKo-Tech/docscan/internal/pdf"
	"github.com/MeKo-Tech/docscan/internal/testutil"
)

// RegisterImageSteps registers fixture and output image steps.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a document photo "([^"]*)"$`, testCtx.aDocumentPhoto)
	sc.Step(`^a blank photo "([^"]*)"$`, testCtx.aBlankPhoto)
	sc.Step(`^a directory "([^"]*)" with (\d+) document photos$`, testCtx.aDirectoryWithDocumentPhotos)
	sc.Step(`^the image "([^"]*)" should be black and white$`, testCtx.theImageShouldBeBlackAndWhite)
	sc.Step(`^the image "([^"]*)" should have colors$`, testCtx.theImageShouldHaveColors)
	sc.Step(`^the image "([^"]*)" should be at most (\d+) pixels on its longer edge$`, testCtx.theImageShouldBeAtMost)
	sc.Step(`^the image "([^"]*)" should be a (PNG|JPEG)$`, testCtx.theImageShouldBeA)
	sc.Step(`^the PDF "([^"]*)" should have (\d+) pages?$`, testCtx.thePDFShouldHavePages)
}

func (testCtx *TestContext) aDocumentPhoto(name string) error {
	img := testutil.GenerateDocumentImage(testutil.DefaultDocumentConfig())
	return imaging.Save(img, testCtx.Path(name))
}

func (testCtx *TestContext) aBlankPhoto(name string) error {
	img := testutil.CreateUniformImage(320, 240, color.NRGBA{128, 128, 128, 255})
	return imaging.Save(img, testCtx.Path(name))
}

func (testCtx *TestContext) aDirectoryWithDocumentPhotos(dir string, n int) error {
	if err := os.MkdirAll(testCtx.Path(dir), 0o755); err != nil {
		return err
	}
	for i := range n {
		if err := testCtx.aDocumentPhoto(fmt.Sprintf("%s/page%d.png", dir, i+1)); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) loadImage(name string) (image.Image, codec.Metadata, error) {
	img, meta, err := codec.LoadImage(testCtx.Path(name))
	if err != nil {
		return nil, meta, fmt.Errorf("failed to load %s: %w", name, err)
	}
	return img, meta, nil
}

func (testCtx *TestContext) theImageShouldBeBlackAndWhite(name string) error {
	img, _, err := testCtx.loadImage(name)
	if err != nil {
		return err
	}
	white, black := testutil.CountGray(img)
	b := img.Bounds()
	if total := b.Dx() * b.Dy(); white+black != total {
		return fmt.Errorf("%s has %d of %d pixels that are neither black nor white", name, total-white-black, total)
	}
	if black == 0 {
		return fmt.Errorf("%s has no black pixels", name)
	}
	return nil
}

func (testCtx *TestContext) theImageShouldHaveColors(name string) error {
	img, _, err := testCtx.loadImage(name)
	if err != nil {
		return err
	}
	white, black := testutil.CountGray(img)
	b := img.Bounds()
	if white+black == b.Dx()*b.Dy() {
		return fmt.Errorf("%s contains only black and white pixels", name)
	}
	return nil
}

func (testCtx *TestContext) theImageShouldBeAtMost(name string, limit int) error {
	img, _, err := testCtx.loadImage(name)
	if err != nil {
		return err
	}
	b := img.Bounds()
	if longest := max(b.Dx(), b.Dy()); longest > limit {
		return fmt.Errorf("%s is %dx%d, longer edge exceeds %d", name, b.Dx(), b.Dy(), limit)
	}
	return nil
}

func (testCtx *TestContext) theImageShouldBeA(name, format string) error {
	_, meta, err := testCtx.loadImage(name)
	if err != nil {
		return err
	}
	want := map[string]string{"PNG": "png", "JPEG": "jpeg"}[format]
	if meta.Format != want {
		return fmt.Errorf("%s is %s, want %s", name, meta.Format, want)
	}
	return nil
}

func (testCtx *TestContext) thePDFShouldHavePages(name string, n int) error {
	f, err := os.Open(testCtx.Path(name))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	got, err := pdf.PageCount(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if got != n {
		return fmt.Errorf("%s has %d pages, want %d", name, got, n)
	}
	return nil
}
