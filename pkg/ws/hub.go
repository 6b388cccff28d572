package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applogger "TradeLens/pkg/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans journal events out to connected websocket clients.
// Slow clients are dropped rather than allowed to stall the broadcast loop.
type Hub struct {
	config     *HubConfig
	logger     *applogger.Logger
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	count   atomic.Int64
	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a broadcast hub.
func NewHub(logger *applogger.Logger, opts ...HubOption) *Hub {
	cfg := &HubConfig{
		SendBuffer:      64,
		PingInterval:    30 * time.Second,
		WriteTimeout:    10 * time.Second,
		MaxMessageBytes: 4096,
		BroadcastBuffer: 256,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &Hub{
		config:     cfg,
		logger:     logger,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, cfg.BroadcastBuffer),
	}
}

// Start runs the hub loop until ctx is cancelled.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	h.mu.Unlock()

	go h.run(ctx)
}

// Stop shuts the hub down and closes all client connections.
func (h *Hub) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	done := h.done
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				_ = c.conn.Close()
				delete(h.clients, c)
			}
			h.count.Store(0)
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			if h.logger != nil {
				h.logger.Debug("ws client connected", applogger.Int("clients", len(h.clients)))
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.count.Store(int64(len(h.clients)))
				if h.logger != nil {
					h.logger.Debug("ws client disconnected", applogger.Int("clients", len(h.clients)))
				}
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Client cannot keep up, cut it loose.
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.count.Store(int64(len(h.clients)))
		}
	}
}

// Broadcast marshals v and queues it for all clients. Drops the message if
// the broadcast buffer is full.
func (h *Hub) Broadcast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("ws broadcast marshal failed", applogger.Error(err))
		}
		return
	}

	select {
	case h.broadcast <- data:
	default:
		if h.logger != nil {
			h.logger.Warn("ws broadcast buffer full, dropping message")
		}
	}
}

// ClientCount returns the number of connected clients. Approximate, since
// the hub loop owns the map.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Serve upgrades an HTTP request to a websocket client of this hub.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.config.SendBuffer),
	}
	h.register <- c

	go c.writePump()
	go c.readPump()

	return nil
}

// readPump drains inbound frames so pings/pongs and close frames are
// processed. Journal clients are listen-only.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.config.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.config.PingInterval * 2))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.config.PingInterval * 2))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
