// Package rawcdp is a minimal CDP-over-WebSocket client used only for the
// browser-level commands chromedp does not expose through a page-scoped
// session: Browser.getWindowForTarget and Browser.setWindowBounds, needed
// by the browser_resize executor. Attaching a full chromedp session for a
// single browser-level call is unnecessary overhead; this client dials the
// browser endpoint directly and sends commands to the browser target
// itself, without attaching to any page session.
package rawcdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Client speaks the browser-level (not page-scoped) CDP protocol over a
// single WebSocket connection.
type Client struct {
	httpBase string

	mu   sync.Mutex
	conn net.Conn
	seq  atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan json.RawMessage
}

// New builds a client for the browser at httpBase, e.g. "http://127.0.0.1:9222".
func New(httpBase string) *Client {
	return &Client{
		httpBase: strings.TrimRight(httpBase, "/"),
		pending:  make(map[int64]chan json.RawMessage),
	}
}

// Connect dials the browser-level WebSocket endpoint. Idempotent.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	wsURL, err := c.browserWSURL(ctx)
	if err != nil {
		return fmt.Errorf("rawcdp: browser ws url: %w", err)
	}

	conn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return fmt.Errorf("rawcdp: dial: %w", err)
	}
	c.conn = conn
	go c.readLoop()
	return nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) browserWSURL(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.httpBase+"/json/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("rawcdp: /json/version: HTTP %d", resp.StatusCode)
	}

	var info struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("rawcdp: empty webSocketDebuggerUrl")
	}
	return info.WebSocketDebuggerURL, nil
}

func (c *Client) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			c.closeAllPending()
			return
		}

		var msg struct {
			ID int64 `json:"id"`
		}
		if json.Unmarshal(data, &msg) != nil || msg.ID == 0 {
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[msg.ID]
		if ok {
			delete(c.pending, msg.ID)
		}
		c.pendingMu.Unlock()
		if ok {
			ch <- json.RawMessage(data)
		}
	}
}

func (c *Client) closeAllPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) send(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("rawcdp: not connected")
	}

	id := c.seq.Add(1)
	ch := make(chan json.RawMessage, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	req := struct {
		ID     int64  `json:"id"`
		Method string `json:"method"`
		Params any    `json:"params,omitempty"`
	}{ID: id, Method: method, Params: params}

	data, err := json.Marshal(req)
	if err != nil {
		c.deletePending(id)
		return nil, fmt.Errorf("rawcdp: marshal: %w", err)
	}

	c.mu.Lock()
	err = wsutil.WriteClientText(conn, data)
	c.mu.Unlock()
	if err != nil {
		c.deletePending(id)
		return nil, fmt.Errorf("rawcdp: send: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("rawcdp: connection closed")
		}
		return resp, nil
	case <-ctx.Done():
		c.deletePending(id)
		return nil, ctx.Err()
	}
}

func (c *Client) deletePending(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// WindowBounds mirrors the fields of Browser.setWindowBounds's bounds
// param that the browser_resize executor cares about.
type WindowBounds struct {
	WindowID      int64  `json:"windowId,omitempty"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	WindowState   string `json:"windowState,omitempty"`
}

// GetWindowForTarget resolves the browser window id owning targetID.
func (c *Client) GetWindowForTarget(ctx context.Context, targetID string) (int64, error) {
	raw, err := c.send(ctx, "Browser.getWindowForTarget", struct {
		TargetID string `json:"targetId"`
	}{TargetID: targetID})
	if err != nil {
		return 0, err
	}

	var resp struct {
		Result struct {
			WindowID int64 `json:"windowId"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("rawcdp: unmarshal getWindowForTarget: %w", err)
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("rawcdp: getWindowForTarget: %s", resp.Error.Message)
	}
	return resp.Result.WindowID, nil
}

// SetWindowBounds resizes the browser window to the given outer window
// dimensions. windowState is left empty to keep the current state
// ("normal" is assumed by the browser when unset alongside width/height).
func (c *Client) SetWindowBounds(ctx context.Context, windowID int64, width, height int) error {
	raw, err := c.send(ctx, "Browser.setWindowBounds", struct {
		WindowID int64        `json:"windowId"`
		Bounds   WindowBounds `json:"bounds"`
	}{WindowID: windowID, Bounds: WindowBounds{Width: width, Height: height}})
	if err != nil {
		return err
	}

	var resp struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("rawcdp: unmarshal setWindowBounds: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("rawcdp: setWindowBounds: %s", resp.Error.Message)
	}
	return nil
}

// Resize is a convenience wrapper combining GetWindowForTarget and
// SetWindowBounds for the browser_resize executor.
func (c *Client) Resize(ctx context.Context, targetID string, width, height int) error {
	windowID, err := c.GetWindowForTarget(ctx, targetID)
	if err != nil {
		return err
	}
	return c.SetWindowBounds(ctx, windowID, width, height)
}
