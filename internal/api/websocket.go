package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"inputcap/internal/capture"
	"inputcap/internal/command"
	"inputcap/internal/input"
	"inputcap/internal/logging"
	"inputcap/internal/protocol"
)

// ErrHubBusy is returned by Emit when the broadcast buffer is full
var ErrHubBusy = fmt.Errorf("websocket hub busy: %w", capture.ErrSinkBusy)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     allowedOrigin,
}

// allowedOrigin accepts non-browser clients (no Origin), the served
// control panel (same host) and pages on a loopback host. Any other web
// page would otherwise be able to read global input.
func allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Hub fans emitted events out to every connected websocket client and
// answers their invoke requests. It implements capture.Sink.
type Hub struct {
	commands *command.Dispatcher
	logger   logging.Logger

	clients   map[*wsClient]bool
	clientsMu sync.RWMutex

	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}

	shed atomic.Uint64
}

// wsClient represents a connected UI
type wsClient struct {
	hub  *Hub
	id   string
	conn *websocket.Conn
	send chan []byte
	ip   string
}

// NewHub creates a hub. Run must be called for it to deliver anything.
func NewHub(commands *command.Dispatcher, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Hub{
		commands:   commands,
		logger:     logger,
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 1024),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
	}
}

// SetCommands binds the dispatcher used for invoke requests. Call it
// before Run.
func (h *Hub) SetCommands(commands *command.Dispatcher) {
	h.commands = commands
}

// Run processes registrations and broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.clientsMu.Unlock()
			h.logger.Info("Websocket client connected", "id", client.id, "remote", client.ip, "clients", n)
			h.sendStatus(ctx, client)

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ctx.Done():
			h.clientsMu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientsMu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *wsClient) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Info("Websocket client disconnected", "id", client.id, "clients", len(h.clients))
	}
}

func (h *Hub) broadcastMessage(message []byte) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
			continue
		default:
		}

		// A full buffer loses its oldest message, the client stays
		select {
		case <-client.send:
		default:
		}
		select {
		case client.send <- message:
		default:
		}
		if n := h.shed.Add(1); n == 1 || n%1000 == 0 {
			h.logger.Warn("Websocket client is falling behind, dropping old messages", "id", client.id, "total_dropped", n)
		}
	}
}

// Shed returns how many queued messages were dropped for slow clients
func (h *Hub) Shed() uint64 {
	return h.shed.Load()
}

// Emit broadcasts ev to every connected client without blocking
func (h *Hub) Emit(name string, ev input.InputEvent) error {
	data, err := json.Marshal(protocol.Message{
		Type:    protocol.TypeEvent,
		Payload: protocol.EventPayload{Event: name, Data: ev},
	})
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- data:
		return nil
	default:
		return ErrHubBusy
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) sendStatus(ctx context.Context, client *wsClient) {
	st, err := h.commands.Invoke(ctx, command.InputListenerStatus)
	if err != nil {
		return
	}
	data, err := json.Marshal(protocol.Message{Type: protocol.TypeStatus, Payload: st})
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

// HandleWebSocket upgrades the request and attaches the client to the hub
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade websocket connection", "err", err)
		return
	}

	client := &wsClient{
		hub:  h,
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		ip:   r.RemoteAddr,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("Websocket read error", "id", c.id, "err", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) handleMessage(data []byte) {
	msg, err := protocol.Parse(data)
	if err != nil {
		c.hub.logger.Debug("Invalid websocket message", "id", c.id, "err", err)
		return
	}

	switch msg.Type {
	case protocol.TypeInvoke:
		var p protocol.InvokePayload
		if err := protocol.Decode(msg, &p); err != nil {
			c.reply(msg.ID, protocol.ResultPayload{Error: err.Error()})
			return
		}

		c.hub.logger.Info("Invoking command", "command", p.Command, "client", c.id)
		res, err := c.hub.commands.Invoke(context.Background(), p.Command)
		result := protocol.ResultPayload{Command: p.Command, OK: err == nil, Data: res}
		if err != nil {
			result.Error = err.Error()
		}
		c.reply(msg.ID, result)

	case protocol.TypePing:
		c.reply(msg.ID, protocol.ResultPayload{Command: string(protocol.TypePing), OK: true})
	}
}

// reply queues a result for this client only. The hub owns c.send, so
// sends go through the registry lock to avoid racing a close.
func (c *wsClient) reply(id string, result protocol.ResultPayload) {
	data, err := json.Marshal(protocol.Message{Type: protocol.TypeResult, ID: id, Payload: result})
	if err != nil {
		return
	}

	c.hub.clientsMu.RLock()
	defer c.hub.clientsMu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
