// Package network contains the websocket client used to attach to a
// running capture service.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"inputcap/internal/input"
	"inputcap/internal/logging"
	"inputcap/internal/protocol"
)

var ErrNotConnected = errors.New("not connected")

// WSClient keeps a websocket connection to a capture service, reconnecting
// until its context ends
type WSClient struct {
	hostAddr       string
	token          string
	logger         logging.Logger
	send           chan protocol.Message
	reconnectDelay time.Duration

	// Callbacks, set before Run
	OnEvent  func(name string, ev input.InputEvent)
	OnStatus func(status json.RawMessage)

	nextID  atomic.Uint64
	mu      sync.Mutex
	pending map[string]chan protocol.ResultPayload

	isConnected atomic.Bool
}

// NewWSClient creates a new WebSocket client for hostAddr ("host:port")
func NewWSClient(hostAddr, token string, logger logging.Logger) *WSClient {
	if logger == nil {
		logger = logging.Discard()
	}
	return &WSClient{
		hostAddr:       hostAddr,
		token:          token,
		logger:         logger,
		send:           make(chan protocol.Message, 100),
		reconnectDelay: 5 * time.Second,
		pending:        make(map[string]chan protocol.ResultPayload),
	}
}

// Run connects and processes messages, reconnecting after a delay,
// until ctx is done
func (c *WSClient) Run(ctx context.Context) error {
	for {
		c.connect(ctx)

		// If connect returns, it means we disconnected. Wait a bit and retry.
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.reconnectDelay):
			c.logger.Info("Attempting reconnection", "addr", c.hostAddr)
		}
	}
}

func (c *WSClient) connect(ctx context.Context) {
	u := url.URL{Scheme: "ws", Host: c.hostAddr, Path: "/ws"}
	c.logger.Info("Connecting", "url", u.String())

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		c.logger.Warn("Connection failed", "err", err)
		return
	}
	defer conn.Close()

	c.isConnected.Store(true)
	c.logger.Info("Connected", "addr", c.hostAddr)

	connDone := make(chan struct{})
	go func() {
		defer close(connDone)
		c.writePump(ctx, conn)
	}()

	// Unblock the read pump when ctx ends
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.readPump(conn)

	c.isConnected.Store(false)
	c.failPending()

	// Ensure write pump stops
	conn.Close()
	<-connDone
}

func (c *WSClient) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(64 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("Read error", "err", err)
			}
			return
		}

		msg, err := protocol.Parse(data)
		if err != nil {
			c.logger.Debug("Invalid message", "err", err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *WSClient) writePump(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second) // Ping ticker
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				c.logger.Warn("Write error", "err", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

func (c *WSClient) handleMessage(msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeEvent:
		var payload protocol.EventPayload
		if err := protocol.Decode(msg, &payload); err != nil {
			c.logger.Debug("Invalid event payload", "err", err)
			return
		}
		if c.OnEvent != nil {
			c.OnEvent(payload.Event, payload.Data)
		}

	case protocol.TypeStatus:
		if raw, ok := msg.Payload.(json.RawMessage); ok && c.OnStatus != nil {
			c.OnStatus(raw)
		}

	case protocol.TypeResult:
		var payload protocol.ResultPayload
		if err := protocol.Decode(msg, &payload); err != nil {
			c.logger.Debug("Invalid result payload", "err", err)
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.mu.Unlock()
		if ok {
			ch <- payload
		}
	}
}

func (c *WSClient) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		ch <- protocol.ResultPayload{Error: "connection lost"}
		delete(c.pending, id)
	}
}

// Invoke runs a named command on the service and waits for its result
func (c *WSClient) Invoke(ctx context.Context, command string) (protocol.ResultPayload, error) {
	if !c.IsConnected() {
		return protocol.ResultPayload{}, ErrNotConnected
	}

	id := strconv.FormatUint(c.nextID.Add(1), 10)
	ch := make(chan protocol.ResultPayload, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	msg := protocol.Message{
		Type:    protocol.TypeInvoke,
		ID:      id,
		Payload: protocol.InvokePayload{Command: command},
	}
	select {
	case c.send <- msg:
	case <-ctx.Done():
		return protocol.ResultPayload{}, ctx.Err()
	}

	select {
	case res := <-ch:
		if !res.OK {
			return res, fmt.Errorf("%s: %s", command, res.Error)
		}
		return res, nil
	case <-ctx.Done():
		return protocol.ResultPayload{}, ctx.Err()
	}
}

// IsConnected returns true if client is connected to the service
func (c *WSClient) IsConnected() bool {
	return c.isConnected.Load()
}
