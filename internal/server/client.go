package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eljam3239/flutter-epson/internal/logging"
)

// ErrClientClosed is returned for calls pending when the connection ends.
var ErrClientClosed = errors.New("client closed")

// Client calls a bridge server over websocket. It is safe for concurrent
// use; responses are matched to calls by id.
type Client struct {
	conn *websocket.Conn
	url  string

	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan *Response
	err     error
	done    chan struct{}
}

// Dial connects to a bridge server, e.g. "ws://127.0.0.1:8765/rpc".
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	c := &Client{
		conn:    conn,
		url:     url,
		pending: make(map[uint64]chan *Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Call sends method with args (any JSON-encodable value, or nil) and waits
// for its response. discoverPrinters only answers after the scan window.
func (c *Client) Call(ctx context.Context, method string, args any) (*Response, error) {
	id := c.nextID.Add(1)
	req := Request{
		ID:     json.RawMessage(strconv.FormatUint(id, 10)),
		Method: method,
	}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("failed to encode args: %w", err)
		}
		req.Args = raw
	}

	ch := make(chan *Response, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(req); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-c.done:
		return nil, c.closeErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) write(req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	logging.LogRPCMessage(c.url, "sent", data)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return nil
}

func (c *Client) readLoop() {
	var err error
	defer func() {
		c.mu.Lock()
		if c.err == nil {
			c.err = err
		}
		c.mu.Unlock()
		close(c.done)
	}()

	for {
		var data []byte
		_, data, err = c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = fmt.Errorf("connection lost: %w", err)
			} else {
				err = ErrClientClosed
			}
			return
		}
		logging.LogRPCMessage(c.url, "received", data)

		var resp Response
		if jerr := json.Unmarshal(data, &resp); jerr != nil {
			logging.Warn("Ignoring malformed response", zap.Error(jerr))
			continue
		}
		id, perr := strconv.ParseUint(string(resp.ID), 10, 64)
		if perr != nil {
			logging.Warn("Ignoring response without call id",
				zap.ByteString("id", resp.ID),
				zap.String("status", resp.Status),
			)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[id]
		c.mu.Unlock()
		if ok {
			select {
			case ch <- &resp:
			default:
			}
		}
	}
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		return ErrClientClosed
	}
	return c.err
}

// Close sends a close frame and releases the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.err == nil {
		c.err = ErrClientClosed
	}
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}
