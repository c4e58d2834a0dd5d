package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/docnorm/internal/decode"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(ev ExtractEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
	return nil
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

// extractWebSocketHandler accepts ExtractMessage requests and streams one
// engine_result event per engine as each finishes.
func (s *Server) extractWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()
	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	conn.SetReadLimit(s.cfg.MaxUploadMB << 21) // base64 overhead
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &wsConn{conn: conn}
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket read failed", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		if messageType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if err := s.handleExtractMessage(ctx, c, data); err != nil {
			slog.Debug("WebSocket write failed", "error", err)
			return
		}
	}
}

// handleExtractMessage runs one request. Only write errors are returned;
// request failures are reported to the client as error events.
func (s *Server) handleExtractMessage(ctx context.Context, c *wsConn, data []byte) error {
	id := newRequestID()
	fail := func(err error) error {
		_, code := classify(err)
		return c.send(ExtractEvent{Type: EventError, RequestID: id, Error: err.Error(), Code: code})
	}

	var msg ExtractMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fail(fmt.Errorf("%w: decode message: %w", errBadRequest, err))
	}
	if len(msg.Document) == 0 {
		return fail(fmt.Errorf("%w: empty document", errBadRequest))
	}
	if err := msg.Layout.Validate(); err != nil {
		return fail(err)
	}
	engines, lang, err := s.engineParams(strings.Join(msg.Engines, ","), msg.Lang)
	if err != nil {
		return fail(err)
	}
	mimeType := decode.Canonical(msg.MimeType)
	if mimeType == "" {
		mimeType = decode.Sniff(msg.Document)
	}

	if err := c.send(ExtractEvent{Type: EventAccepted, RequestID: id}); err != nil {
		return err
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	width, height := msg.Layout.Dimensions()
	start := time.Now()
	normalized, err := s.normalizer.Normalize(ctx, msg.Document, mimeType, width, height)
	observeNormalize(start, err)
	if err != nil {
		return fail(err)
	}
	if err := c.send(ExtractEvent{Type: EventNormalized, RequestID: id, Width: width, Height: height}); err != nil {
		return err
	}

	var (
		total    float64
		writeErr error
	)
	err = s.dispatcher.ExtractEach(ctx, normalized, msg.Layout.Fields, engines, lang, func(res ocr.EngineResults) error {
		total += totalPrice([]ocr.EngineResults{res})
		writeErr = c.send(ExtractEvent{Type: EventEngineResult, RequestID: id, Result: &res})
		return writeErr
	})
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		return fail(err)
	}
	return c.send(ExtractEvent{Type: EventCompleted, RequestID: id, TotalPrice: total})
}
