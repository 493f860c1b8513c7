package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/t77yq/energy-dashboard/internal/model"
	"github.com/t77yq/energy-dashboard/internal/monitor"
)

const (
	// writeWait is the time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize  = 512
	sendChannelSize = 256
	outboundSize    = 1024
)

// Message types pushed to websocket clients
const (
	MessageAlertChanged        = "alert.changed"
	MessageNotificationChanged = "notification.changed"
)

// Message is the envelope of every websocket frame
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// AlertChanged carries the full alert collection at Version. Clients keep the
// highest version they have seen.
type AlertChanged struct {
	Version uint64            `json:"version"`
	From    model.AlertStatus `json:"from,omitempty"`
	To      model.AlertStatus `json:"to,omitempty"`
	AlertID string            `json:"alert_id,omitempty"`
	Alerts  []model.Alert     `json:"alerts"`
	Summary monitor.Summary   `json:"summary"`
}

// NotificationChanged carries the full notification list at Version
type NotificationChanged struct {
	Version       uint64               `json:"version"`
	UnreadCount   int                  `json:"unread_count"`
	Notifications []model.Notification `json:"notifications"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// envelope is a frame for every client, or only for target when set
type envelope struct {
	target *client
	data   []byte
}

// Hub maintains the set of active websocket clients and fans out store changes
type Hub struct {
	clients    map[*client]bool
	outbound   chan envelope
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(ctx context.Context, logger *zap.Logger) *Hub {
	hubCtx, cancel := context.WithCancel(ctx)
	return &Hub{
		clients:    make(map[*client]bool),
		outbound:   make(chan envelope, outboundSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger.Named("websocket"),
		ctx:        hubCtx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run runs the hub's event loop until Stop is called
func (h *Hub) Run() {
	defer close(h.done)

	h.logger.Info("WebSocket hub started")

	for {
		select {
		case <-h.ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				c.conn.Close()
			}
			h.clients = make(map[*client]bool)
			h.mu.Unlock()
			h.logger.Info("WebSocket hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("WebSocket client registered", zap.Int("total_clients", total))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("WebSocket client unregistered", zap.Int("total_clients", total))

		case env := <-h.outbound:
			h.mu.Lock()
			for c := range h.clients {
				if env.target != nil && env.target != c {
					continue
				}
				select {
				case c.send <- env.data:
				default:
					// Slow client, drop it rather than block every other client
					delete(h.clients, c)
					close(c.send)
					go c.conn.Close()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop closes every client connection and waits for Run to return
func (h *Hub) Stop() {
	h.cancel()
	<-h.done
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a message for every client without blocking the caller
func (h *Hub) Broadcast(msgType string, data interface{}) {
	h.enqueue(nil, msgType, data)
}

func (h *Hub) enqueue(target *client, msgType string, data interface{}) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data, Timestamp: time.Now()})
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message",
			zap.String("type", msgType),
			zap.Error(err))
		return
	}

	select {
	case h.outbound <- envelope{target: target, data: payload}:
	default:
		h.logger.Warn("WebSocket outbound queue full, dropping message",
			zap.String("type", msgType))
	}
}

// Attach pushes every committed store change to connected clients and returns
// a function detaching the hub
func (h *Hub) Attach(alerts *monitor.AlertStore, notifications *monitor.NotificationStore) func() {
	detachAlerts := alerts.Subscribe(func(e monitor.AlertEvent) {
		h.Broadcast(MessageAlertChanged, AlertChanged{
			Version: e.Version,
			From:    e.From,
			To:      e.To,
			AlertID: e.Alert.ID,
			Alerts:  e.Snapshot,
			Summary: monitor.Summarize(e.Snapshot),
		})
	})
	detachNotes := notifications.Subscribe(func(e monitor.NotificationEvent) {
		h.Broadcast(MessageNotificationChanged, NotificationChanged{
			Version:       e.Version,
			UnreadCount:   e.UnreadCount,
			Notifications: e.Snapshot,
		})
	})
	return func() {
		detachAlerts()
		detachNotes()
	}
}

// ServeWS upgrades the request and sends the current state of both stores
// before streaming changes
func (h *Hub) ServeWS(alerts *monitor.AlertStore, notifications *monitor.NotificationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Error("WebSocket upgrade failed", zap.Error(err))
			return
		}

		c := &client{
			hub:  h,
			conn: conn,
			send: make(chan []byte, sendChannelSize),
		}

		select {
		case h.register <- c:
		case <-h.ctx.Done():
			conn.Close()
			return
		}

		go c.writePump()
		go c.readPump()

		// Registered before the snapshots are taken, so no commit is missed
		as := alerts.Snapshot()
		h.enqueue(c, MessageAlertChanged, AlertChanged{
			Version: as.Version,
			Alerts:  as.Alerts,
			Summary: monitor.Summarize(as.Alerts),
		})
		ns := notifications.Snapshot()
		h.enqueue(c, MessageNotificationChanged, NotificationChanged{
			Version:       ns.Version,
			UnreadCount:   ns.UnreadCount,
			Notifications: ns.Notifications,
		})
	}
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Clients never send anything meaningful, reads only detect disconnects
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("WebSocket unexpected close", zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
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
