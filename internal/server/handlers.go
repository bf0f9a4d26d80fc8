package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/docscan/internal/codec"
	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/imgbuf"
	"github.com/MeKo-Tech/docscan/internal/pdf"
	"github.com/MeKo-Tech/docscan/internal/pipeline"
	"github.com/MeKo-Tech/docscan/internal/version"
)

// uploadField is the multipart field carrying the image.
const uploadField = "file"

// Response headers set on successful scans.
const (
	headerCorners  = "X-Docscan-Corners"
	headerFallback = "X-Docscan-Fallback"
)

// httpError carries a status code up to the handler.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	v, _, _ := version.Info()
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: v,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// scanHandler serves the API description on GET and scans uploads on POST.
func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.describe())
	case http.MethodPost:
		s.handleScan(w, r, false)
	default:
		s.writeErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// scanPDFHandler scans an upload and returns it wrapped in a PDF page.
func (s *Server) scanPDFHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.handleScan(w, r, true)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request, asPDF bool) {
	img, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts, err := s.parseOptions(r.FormValue)
	if err != nil {
		s.writeError(w, err)
		return
	}
	page := s.page
	if asPDF {
		if page, err = s.parsePageOptions(r.FormValue); err != nil {
			s.writeError(w, err)
			return
		}
	}

	var body bytes.Buffer
	res, contentType, err := s.scan(r.Context(), img, opts, asPDF, page, &body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
	w.Header().Set(headerCorners, formatCorners(res.Corners))
	w.Header().Set(headerFallback, fallbackHeader(res))
	if asPDF {
		w.Header().Set("Content-Disposition", `attachment; filename="scan.pdf"`)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := body.WriteTo(w); err != nil {
		s.logger.Error("Failed to write scan response", "error", err)
	}
}

// scan runs one scan inside a processing slot and encodes the result into
// body, either as an image or as a single PDF page.
func (s *Server) scan(ctx context.Context, img image.Image, opts pipeline.Options, asPDF bool,
	page pdf.PageOptions, body io.Writer,
) (*pipeline.Result, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, "", &httpError{status: http.StatusServiceUnavailable, msg: "server busy, try again later"}
	}
	defer release()

	res, err := s.scanner.ScanContext(ctx, img, opts)
	if err != nil {
		return nil, "", err
	}
	if asPDF {
		if err := pdf.WritePage(body, res.Image.ToNRGBA(), page); err != nil {
			return nil, "", fmt.Errorf("write pdf: %w", err)
		}
		return res, "application/pdf", nil
	}
	if err := s.scanner.Encode(body, res); err != nil {
		return nil, "", err
	}
	return res, opts.Format.ContentType(), nil
}

// readUpload reads and decodes the multipart image upload.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (image.Image, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, &httpError{status: http.StatusRequestEntityTooLarge,
				msg: fmt.Sprintf("file too large (max %d MB)", s.maxUploadMB)}
		}
		return nil, badRequest("failed to parse form data: %v", err)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, badRequest("no image provided in field %q", uploadField)
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		return nil, &httpError{status: http.StatusRequestEntityTooLarge,
			msg: fmt.Sprintf("file too large (max %d MB)", s.maxUploadMB)}
	}
	uploadSizeBytes.Observe(float64(header.Size))

	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" && !codec.IsAllowedContentType(ct) {
		return nil, &httpError{status: http.StatusUnsupportedMediaType, msg: "unsupported content type: " + ct}
	}

	img, _, err := codec.Decode(file)
	if err != nil {
		if errors.Is(err, codec.ErrUnsupportedFormat) {
			return nil, &httpError{status: http.StatusUnsupportedMediaType, msg: "unsupported image format"}
		}
		return nil, badRequest("invalid image: %v", err)
	}
	return img, nil
}

// parseOptions builds scan options from request parameters on top of the
// server defaults. A preset is applied first so explicit blockSize and
// offset values win.
func (s *Server) parseOptions(get func(string) string) (pipeline.Options, error) {
	opts := s.defaults

	if name := get("preset"); name != "" {
		p, err := s.presets.Get(name)
		if err != nil {
			return opts, badRequest("%v", err)
		}
		p.Apply(&opts)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"blockSize", &opts.BlockSize},
		{"offset", &opts.Offset},
		{"maxSize", &opts.MaxOutputSize},
		{"quality", &opts.Quality},
		{"level", &opts.GlobalLevel},
	}
	for _, p := range ints {
		v := get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return opts, badRequest("invalid %s: %q", p.key, v)
		}
		*p.dst = n
	}

	var err error
	if v := get("mode"); v != "" {
		if opts.Mode, err = pipeline.ParseMode(v); err != nil {
			return opts, badRequest("%v", err)
		}
	}
	if v := get("format"); v != "" {
		if opts.Format, err = codec.ParseFormat(v); err != nil {
			return opts, badRequest("%v", err)
		}
	}
	if v := get("threshold"); v != "" {
		if opts.Threshold, err = pipeline.ParseThresholdMethod(v); err != nil {
			return opts, badRequest("%v", err)
		}
	}
	if v := get("corners"); v != "" {
		if opts.Corners, err = pipeline.ParseCorners(v); err != nil {
			return opts, badRequest("%v", err)
		}
	}
	if err := opts.Validate(); err != nil {
		return opts, badRequest("%v", err)
	}
	return opts, nil
}

func (s *Server) parsePageOptions(get func(string) string) (pdf.PageOptions, error) {
	page := s.page
	if v := get("pageSize"); v != "" {
		size, err := pdf.ParsePageSize(v)
		if err != nil {
			return page, badRequest("%v", err)
		}
		page.Size = size
	}
	if v := get("margin"); v != "" {
		m, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(m) || math.IsInf(m, 0) {
			return page, badRequest("invalid margin: %q", v)
		}
		if m < 0 {
			return page, badRequest("invalid margin: %.1f (must be >= 0)", m)
		}
		page.Margin = m
	}
	// Any image size works here: only the page and margin decide whether
	// there is room left.
	if _, err := pdf.Layout(1, 1, page); err != nil {
		return page, badRequest("%v", err)
	}
	return page, nil
}

func (s *Server) describe() APIDescription {
	d := s.defaults
	return APIDescription{
		Endpoints: map[string]string{
			"POST /api/scan":     "scan an uploaded photo and return the page image",
			"POST /api/scan/pdf": "scan an uploaded photo and return a one-page PDF",
			"GET /ws/scan":       "WebSocket scanning with base64 payloads",
			"GET /health":        "health check",
			"GET /metrics":       "Prometheus metrics",
		},
		FileField: uploadField,
		Params: []ParamInfo{
			{Name: "mode", Description: "bw or color", Default: d.Mode},
			{Name: "blockSize", Description: "adaptive threshold window, made odd", Default: d.BlockSize},
			{Name: "offset", Description: "threshold offset in percent (0-100)", Default: d.Offset},
			{Name: "threshold", Description: "bradley or global", Default: d.Threshold},
			{Name: "level", Description: "global threshold level (0-255)", Default: d.GlobalLevel},
			{Name: "maxSize", Description: "longest output edge in pixels, 0 uses the default", Default: d.MaxOutputSize},
			{Name: "format", Description: "png or jpeg", Default: d.Format},
			{Name: "quality", Description: "jpeg quality (1-100)", Default: d.Quality},
			{Name: "preset", Description: "named threshold preset"},
			{Name: "corners", Description: "manual corners as x,y;x,y;x,y;x,y"},
			{Name: "pageSize", Description: "PDF page size: original, a4 or letter", Default: s.page.Size},
			{Name: "margin", Description: "PDF page margin in points, ignored for original", Default: s.page.Margin},
		},
		ContentTypes:  codec.AllowedContentTypes,
		MaxUploadMB:   s.maxUploadMB,
		Presets:       s.presets.All(),
		PageSizes:     []pdf.PageSize{pdf.PageOriginal, pdf.PageA4, pdf.PageLetter},
		ScannerConfig: s.scanner.Info(),
	}
}

func formatCorners(q geometry.Quad) string {
	parts := make([]string, len(q))
	for i, p := range q {
		parts[i] = strconv.FormatFloat(p.X, 'f', 1, 64) + "," + strconv.FormatFloat(p.Y, 'f', 1, 64)
	}
	return strings.Join(parts, ";")
}

func fallbackHeader(res *pipeline.Result) string {
	if f := res.Fallback(); f != "" {
		return f
	}
	return "none"
}

// writeError maps err to a status code and writes a JSON error.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var he *httpError
	switch {
	case errors.As(err, &he):
		s.writeErrorResponse(w, he.msg, he.status)
	case errors.Is(err, pipeline.ErrInvalidOptions), errors.Is(err, imgbuf.ErrMissingDimensions):
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error("Scan failed", "error", err)
		s.writeErrorResponse(w, "scan failed: "+err.Error(), http.StatusInternalServerError)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}
