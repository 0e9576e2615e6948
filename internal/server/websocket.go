package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eljam3239/flutter-epson/internal/bridge"
	"github.com/eljam3239/flutter-epson/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// rpcConn is one websocket caller. Writes are serialized because
// discovery answers arrive from timer goroutines.
type rpcConn struct {
	conn       *websocket.Conn
	remoteAddr string

	writeMu sync.Mutex
	seq     atomic.Uint64
}

func (c *rpcConn) send(resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	logging.LogRPCMessage(c.remoteAddr, "sent", data)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *rpcConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *rpcConn) close() {
	_ = c.conn.Close()
}

// connResult answers one request on its connection.
type connResult struct {
	conn *rpcConn
	id   json.RawMessage
}

func (r *connResult) deliver(resp Response) {
	resp.ID = r.id
	if err := r.conn.send(resp); err != nil {
		logging.Warn("Failed to deliver response",
			zap.String("remote_addr", r.conn.remoteAddr),
			zap.ByteString("id", r.id),
			zap.Error(err),
		)
	}
}

func (r *connResult) Success(value any) {
	r.deliver(Response{Status: bridge.StatusSuccess.String(), Result: value})
}

func (r *connResult) Error(code, message string, details any) {
	r.deliver(Response{
		Status: bridge.StatusError.String(),
		Error:  &ErrorBody{Code: code, Message: message, Details: details},
	})
}

func (r *connResult) NotImplemented() {
	r.deliver(Response{Status: bridge.StatusNotImplemented.String()})
}

// handleWebSocket upgrades the request and serves commands until the peer
// goes away. Scans started by a connection are cancelled when it closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := &rpcConn{conn: ws, remoteAddr: r.RemoteAddr}
	s.wg.Add(1)
	s.track(c)
	logging.LogConnection(c.remoteAddr, "websocket_upgraded")

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.close()
		s.untrack(c)
		logging.LogConnection(c.remoteAddr, "websocket_closed")
		s.wg.Done()
	}()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	go s.keepAlive(ctx, c)

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("Connection closed with error",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
		logging.LogRPCMessage(c.remoteAddr, "received", message)
		s.handleMessage(ctx, c, message)
	}
}

func (s *Server) handleMessage(ctx context.Context, c *rpcConn, message []byte) {
	var req Request
	if err := json.Unmarshal(message, &req); err != nil || req.Method == "" {
		msg := "missing method"
		if err != nil {
			msg = err.Error()
		}
		res := &connResult{conn: c, id: req.ID}
		res.Error(codeInvalidRequest, msg, nil)
		return
	}

	seq := c.seq.Add(1)
	logging.Debug("Dispatching command",
		zap.String("remote_addr", c.remoteAddr),
		zap.Uint64("seq", seq),
		zap.String("method", req.Method),
	)
	s.dispatcher.HandleName(ctx, seq, req.Method, req.Args, &connResult{conn: c, id: req.ID})
}

func (s *Server) keepAlive(ctx context.Context, c *rpcConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				logging.Debug("Ping failed", zap.String("remote_addr", c.remoteAddr), zap.Error(err))
				return
			}
		}
	}
}
