package server

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docscan/internal/pipeline"
	"github.com/MeKo-Tech/docscan/internal/testutil"
)

// mockScanner returns canned results for handler tests.
type mockScanner struct {
	result    *pipeline.Result
	err       error
	encodeErr error
	calls     atomic.Int32
	lastOpts  pipeline.Options
}

func (m *mockScanner) ScanContext(_ context.Context, _ image.Image, opts pipeline.Options) (*pipeline.Result, error) {
	m.calls.Add(1)
	m.lastOpts = opts
	return m.result, m.err
}

func (m *mockScanner) Encode(w io.Writer, _ *pipeline.Result) error {
	if m.encodeErr != nil {
		return m.encodeErr
	}
	_, err := w.Write([]byte("encoded"))
	return err
}

func (m *mockScanner) Info() map[string]any { return map[string]any{"mock": true} }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer builds a server around the real scanner.
func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	cfg := Config{
		MaxUploadMB:   2,
		TimeoutSec:    30,
		MaxConcurrent: 2,
		Scanner:       pipeline.DefaultConfig(),
		Logger:        quietLogger(),
	}
	cfg.Scanner.Workers = 2
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s
}

func newMockServer(m *mockScanner) *Server {
	return newServerWithScanner(Config{MaxUploadMB: 2, TimeoutSec: 5, MaxConcurrent: 1}, m, quietLogger())
}

// documentPNG is a dark rectangle on a light background.
func documentPNG(t *testing.T) []byte {
	t.Helper()
	img := testutil.CreateRectangleImage(400, 300, image.Rect(50, 50, 350, 250), color.White, color.Black)
	return encodePNG(t, img)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartRequest builds a POST with data in the given form field. An
// empty contentType leaves the part type at application/octet-stream.
func multipartRequest(t *testing.T, target, field, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if field != "" {
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="upload"`, field))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}
