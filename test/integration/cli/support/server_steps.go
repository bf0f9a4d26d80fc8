package support

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/docscan/internal/codec"
	"github.com/MeKo-Tech/docscan/internal/testutil"
)

// RegisterServerSteps registers HTTP server steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the server is running$`, func() error { return testCtx.StartServer("") })
	sc.Step(`^the server is running with "([^"]*)"$`, testCtx.StartServer)
	sc.Step(`^I request "([^"]*)"$`, testCtx.iRequest)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTo)
	sc.Step(`^I upload "([^"]*)" as "([^"]*)" to "([^"]*)"$`, testCtx.iUploadAsTo)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response header "([^"]*)" should be set$`, testCtx.theResponseHeaderShouldBeSet)
	sc.Step(`^the response body should contain "([^"]*)"$`, testCtx.theResponseBodyShouldContain)
	sc.Step(`^the response should be a (PNG|JPEG) image$`, testCtx.theResponseShouldBeAnImage)
	sc.Step(`^the response should be a PDF$`, testCtx.theResponseShouldBeAPDF)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
}

func (testCtx *TestContext) do(req *http.Request) error {
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", req.Method, req.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPBody = body
	testCtx.LastHTTPHeaders = resp.Header
	return nil
}

func (testCtx *TestContext) iRequest(path string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, testCtx.BaseURL()+path, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

func (testCtx *TestContext) iUploadTo(name, path string) error {
	return testCtx.iUploadAsTo(name, "", path)
}

// iUploadAsTo posts the file as multipart field "file". An empty content
// type is derived from the file extension.
func (testCtx *TestContext) iUploadAsTo(name, contentType, target string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "image/png"
		if ext := strings.ToLower(filepath.Ext(name)); ext == ".jpg" || ext == ".jpeg" {
			contentType = "image/jpeg"
		}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(name)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, testCtx.BaseURL()+target, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("status %d, want %d\nBody: %s", testCtx.LastHTTPStatusCode, code, testCtx.LastHTTPBody)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	if got := testCtx.LastHTTPHeaders.Get(name); got != value {
		return fmt.Errorf("header %s is %q, want %q", name, got, value)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBeSet(name string) error {
	if testCtx.LastHTTPHeaders.Get(name) == "" {
		return fmt.Errorf("header %s is not set", name)
	}
	return nil
}

func (testCtx *TestContext) theResponseBodyShouldContain(text string) error {
	if !strings.Contains(string(testCtx.LastHTTPBody), text) {
		return fmt.Errorf("body does not contain %q\nBody: %s", text, testCtx.LastHTTPBody)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldBeAnImage(format string) error {
	img, meta, err := codec.Decode(bytes.NewReader(testCtx.LastHTTPBody))
	if err != nil {
		return fmt.Errorf("response is not an image: %w", err)
	}
	if want := strings.ToLower(format); meta.Format != want {
		return fmt.Errorf("response is %s, want %s", meta.Format, want)
	}
	if format == "PNG" {
		white, black := testutil.CountGray(img)
		if white+black == 0 {
			return fmt.Errorf("response image has no black or white pixels")
		}
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldBeAPDF() error {
	if !bytes.HasPrefix(testCtx.LastHTTPBody, []byte("%PDF-")) {
		return fmt.Errorf("response is not a PDF (starts with %q)", testCtx.LastHTTPBody[:min(8, len(testCtx.LastHTTPBody))])
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	var v any
	if err := json.Unmarshal(testCtx.LastHTTPBody, &v); err != nil {
		return fmt.Errorf("response is not JSON: %w\nBody: %s", err, testCtx.LastHTTPBody)
	}
	got, err := lookupField(v, field)
	if err != nil {
		return err
	}
	if s := fmt.Sprint(got); s != expected {
		return fmt.Errorf("field %s is %q, want %q", field, s, expected)
	}
	return nil
}
