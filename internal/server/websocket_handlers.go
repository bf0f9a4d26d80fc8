package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/docscan/internal/codec"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketScanRequest is a scan request sent over WebSocket. Image holds
// the encoded photo (base64 in JSON); Options takes the same keys as the
// HTTP query parameters.
type WebSocketScanRequest struct {
	Type    string         `json:"type"` // "image" or "pdf"
	Image   []byte         `json:"image"`
	Options map[string]any `json:"options,omitempty"`
}

// WebSocketScanResult carries the scanned page.
type WebSocketScanResult struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Corners     string `json:"corners"`
	Fallback    string `json:"fallback"`
}

// WebSocketScanResponse is sent for every state change of a request.
type WebSocketScanResponse struct {
	Type      string               `json:"type"`
	Status    string               `json:"status"` // "processing", "completed", "error"
	Progress  float64              `json:"progress,omitempty"`
	Result    *WebSocketScanResult `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
	ErrorType string               `json:"error_type,omitempty"`
	RequestID string               `json:"request_id,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// scanWebSocketHandler handles WebSocket connections for interactive scanning.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection reads requests until the client goes away.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(s.maxUploadMB * 1024 * 1024 * 2)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// handleWebSocketMessage processes a single scan request.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketScanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("failed to parse request: %v", err))
		return
	}
	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)

	asPDF := false
	switch req.Type {
	case "", "image":
	case "pdf":
		asPDF = true
	default:
		s.sendWebSocketError(conn, requestID, "invalid_request", "unsupported request type: "+req.Type)
		return
	}
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "no image data provided")
		return
	}
	if int64(len(req.Image)) > s.maxUploadMB*1024*1024 {
		s.sendWebSocketError(conn, requestID, "invalid_request", fmt.Sprintf("image too large (max %d MB)", s.maxUploadMB))
		return
	}

	get := optionGetter(req.Options)
	opts, err := s.parseOptions(get)
	if err != nil {
		s.sendWebSocketError(conn, requestID, "invalid_request", err.Error())
		return
	}
	page := s.page
	if asPDF {
		if page, err = s.parsePageOptions(get); err != nil {
			s.sendWebSocketError(conn, requestID, "invalid_request", err.Error())
			return
		}
	}

	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      "scan_response",
		Status:    "processing",
		RequestID: requestID,
	})

	img, _, err := codec.Decode(bytes.NewReader(req.Image))
	if err != nil {
		s.sendWebSocketError(conn, requestID, "invalid_image", fmt.Sprintf("failed to decode image: %v", err))
		return
	}

	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      "scan_response",
		Status:    "processing",
		Progress:  0.5,
		RequestID: requestID,
	})

	var body bytes.Buffer
	res, contentType, err := s.scan(ctx, img, opts, asPDF, page, &body)
	if err != nil {
		errType := "processing_error"
		var he *httpError
		if errors.As(err, &he) && he.status < http.StatusInternalServerError {
			errType = "invalid_request"
		}
		s.sendWebSocketError(conn, requestID, errType, err.Error())
		return
	}

	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:     "scan_response",
		Status:   "completed",
		Progress: 1.0,
		Result: &WebSocketScanResult{
			Data:        body.Bytes(),
			ContentType: contentType,
			Width:       res.Width(),
			Height:      res.Height(),
			Corners:     formatCorners(res.Corners),
			Fallback:    fallbackHeader(res),
		},
		RequestID: requestID,
	})
}

// optionGetter adapts loosely typed JSON options to the query-style lookup
// used by parseOptions.
func optionGetter(options map[string]any) func(string) string {
	return func(key string) string {
		v, ok := options[key]
		if !ok || v == nil {
			return ""
		}
		if f, ok := v.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return fmt.Sprint(v)
	}
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketScanResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
