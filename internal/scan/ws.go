package scan

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zombor/cleanscan/internal/waste"
)

// Websocket message types
const (
	msgScan        = "scan"
	msgNewScan     = "new_scan"
	msgPing        = "ping"
	msgPong        = "pong"
	msgScanStarted = "scan_started"
	msgScanResult  = "scan_result"
	msgScanError   = "scan_error"
	msgError       = "error"
)

// wsMessage is the envelope for every websocket frame
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type scanStarted struct {
	ScanID uint64 `json:"scanId"`
}

type scanResult struct {
	ScanID uint64        `json:"scanId"`
	Report *waste.ScanReport `json:"report"`
}

type scanError struct {
	ScanID uint64     `json:"scanId"`
	Code   waste.Kind `json:"code"`
	Error  string     `json:"error"`
}

// wsClient is one websocket connection with its own scan session
type wsClient struct {
	id      string
	ip      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	session *Session
	server  *Server
}

// handleWebSocket runs a scan session over a websocket. Each "scan" message
// supersedes the previous one; outcomes of superseded scans are dropped.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &wsClient{
		id:      uuid.NewString(),
		ip:      clientIP(r),
		conn:    conn,
		session: NewSession(),
		server:  s,
	}
	defer c.session.Close()

	slog.Debug("WebSocket client connected", "client", c.id)
	// The connection outlives the upgrade request, so scans get their own root context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Error reading websocket message", "client", c.id, "error", err)
			}
			return
		}
		c.handle(ctx, msg)
	}
}

func (c *wsClient) handle(ctx context.Context, msg wsMessage) {
	switch msg.Type {
	case msgScan:
		var req Request
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.send(msgError, map[string]string{"error": "Invalid scan request"})
			return
		}
		c.startScan(ctx, req)
	case msgNewScan:
		c.session.Reset()
	case msgPing:
		c.send(msgPong, nil)
	default:
		c.send(msgError, map[string]string{"error": "Unknown message type"})
	}
}

func (c *wsClient) startScan(ctx context.Context, req Request) {
	// A rejected submission never becomes a scan, so the one in flight keeps running.
	// Its scan_error carries scanId 0.
	if !c.server.limiter.Allow(c.ip) {
		slog.Warn("Rate limit exceeded", "client", c.id, "ip", c.ip)
		resp := mapError(errRateLimitedInbound)
		c.send(msgScanError, scanError{Code: resp.Code, Error: resp.Message})
		return
	}

	// Begin and its announcement are ordered with finish under writeMu, so a
	// superseded outcome is never written after the newer scan_started.
	c.writeMu.Lock()
	id, scanCtx := c.session.Begin(ctx)
	c.write(msgScanStarted, scanStarted{ScanID: id})
	c.writeMu.Unlock()

	go func() {
		report, err := c.server.service.Scan(scanCtx, req)
		c.finish(Outcome{ScanID: id, Report: report, Err: err})
	}()
}

// finish delivers an outcome only if its scan is still the current one
func (c *wsClient) finish(o Outcome) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if !c.session.Apply(o) {
		c.server.service.Metrics().ObserveStale()
		slog.Debug("Dropping stale scan outcome", "client", c.id, "scan", o.ScanID)
		return
	}

	if o.Err != nil {
		resp := mapError(o.Err)
		c.write(msgScanError, scanError{ScanID: o.ScanID, Code: resp.Code, Error: resp.Message})
		return
	}
	c.write(msgScanResult, scanResult{ScanID: o.ScanID, Report: o.Report})
}

func (c *wsClient) send(messageType string, data any) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.write(messageType, data)
}

// write sends one frame; callers hold writeMu
func (c *wsClient) write(messageType string, data any) {
	msg := map[string]any{"type": messageType}
	if data != nil {
		msg["data"] = data
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		slog.Warn("Error sending websocket message", "client", c.id, "type", messageType, "error", err)
	}
}
