// internal/stream/hub.go
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/creatorclaim/backend/internal/models"
)

// RoyaltyEvent is the wire form of one royalty share pushed to dashboards.
type RoyaltyEvent struct {
	ID               string `json:"id"`
	Timestamp        string `json:"timestamp"`
	Amount           uint64 `json:"amount"`
	Source           string `json:"source"`
	CertificateID    string `json:"certificateId"`
	CertificateTitle string `json:"certificateTitle"`
	RecipientWallet  string `json:"recipientWallet"`
}

// message is the envelope for everything sent over a subscriber connection.
type message struct {
	Type          string        `json:"type"`
	ClientID      string        `json:"clientId,omitempty"`
	Message       string        `json:"message,omitempty"`
	WalletAddress string        `json:"walletAddress,omitempty"`
	Timestamp     string        `json:"timestamp,omitempty"`
	Event         *RoyaltyEvent `json:"event,omitempty"`
}

// Config holds hub tuning knobs.
type Config struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
	SendBufferSize int
}

// DefaultConfig returns sensible hub defaults.
func DefaultConfig() Config {
	return Config{
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		MaxMessageSize: 1024,
		SendBufferSize: 64,
	}
}

// Client is one live subscriber connection. A client with a registered
// wallet receives only events addressed to that wallet; an unfiltered
// client receives everything.
type Client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan message
	done chan struct{}
	hub  *Hub

	mu     sync.Mutex
	wallet string
}

func (c *Client) setWallet(wallet string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wallet = wallet
}

// matches reports whether the client should receive an event for the given
// recipient. An absent filter matches everything; a set filter is an exact
// replacement, not additive.
func (c *Client) matches(recipient string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wallet == "" || c.wallet == recipient
}

// Hub maintains the set of live subscriber connections and broadcasts newly
// indexed royalty events to matching subscribers. Delivery is best-effort:
// a slow subscriber's buffer overflowing drops the event for that
// subscriber only, and a failed send drops the subscriber itself.
type Hub struct {
	config   Config
	logger   *logrus.Entry
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan RoyaltyEvent

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewHub creates a Hub.
func NewHub(cfg Config, logger *logrus.Logger) *Hub {
	return &Hub{
		config: cfg,
		logger: logger.WithField("component", "royalty_stream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan RoyaltyEvent, 256),
		done:       make(chan struct{}),
	}
}

// Start begins client management and broadcasting.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.run()
	h.logger.Info("Royalty stream hub started")
}

// Stop closes all connections and stops the hub.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
	h.wg.Wait()
	h.logger.Info("Royalty stream hub stopped")
}

func (h *Hub) run() {
	defer h.wg.Done()

	for {
		select {
		case <-h.done:
			h.closeAllClients()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// Publish delivers a royalty event to every connected subscriber whose
// filter is absent or matches the recipient wallet. It never blocks on a
// slow subscriber.
func (h *Hub) Publish(event RoyaltyEvent) {
	select {
	case h.broadcast <- event:
	case <-h.done:
	default:
		h.logger.Warn("Broadcast buffer full, dropping royalty event")
	}
}

// NotifyRoyalty adapts an indexed royalty event row to the wire format and
// publishes it. Satisfies the indexer's Notifier interface.
func (h *Hub) NotifyRoyalty(event *models.RoyaltyEvent) {
	h.Publish(RoyaltyEvent{
		ID:               event.ID.String(),
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Amount:           event.Amount,
		Source:           string(event.Source),
		CertificateID:    event.CertificateAssetID,
		CertificateTitle: event.CertificateTitle,
		RecipientWallet:  event.Beneficiary,
	})
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// HandleConnection upgrades an HTTP request to a subscriber connection. An
// optional "wallet" query parameter pre-registers the delivery filter.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade websocket connection")
		return
	}

	client := &Client{
		id:     uuid.New(),
		conn:   conn,
		send:   make(chan message, h.config.SendBufferSize),
		done:   make(chan struct{}),
		hub:    h,
		wallet: r.URL.Query().Get("wallet"),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Immediate acknowledgement carrying the subscription id.
	client.enqueue(message{
		Type:     "connection",
		Message:  "Connected to CreatorClaim royalty stream",
		ClientID: client.id.String(),
	})

	go client.writePump()
	go client.readPump()
}

func (h *Hub) addClient(client *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.clients[client.id] = client
	h.logger.WithField("client_id", client.id.String()).Info("Client connected")
}

// removeClient is idempotent: removing an unknown or already removed client
// is a no-op.
func (h *Hub) removeClient(client *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if _, ok := h.clients[client.id]; !ok {
		return
	}
	delete(h.clients, client.id)
	close(client.done)
	h.logger.WithField("client_id", client.id.String()).Info("Client disconnected")
}

// closeAllClients signals every client's done channel. The send channel is
// never closed: readPump may still be enqueueing messages concurrently, and
// a send buffer that simply stops draining is safe where a closed channel
// would panic.
func (h *Hub) closeAllClients() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for _, client := range h.clients {
		close(client.done)
	}
	h.clients = make(map[uuid.UUID]*Client)
}

func (h *Hub) broadcastEvent(event RoyaltyEvent) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	for _, client := range h.clients {
		if !client.matches(event.RecipientWallet) {
			continue
		}
		select {
		case client.send <- message{Type: "royalty_event", Event: &event}:
		default:
			h.logger.WithField("client_id", client.id.String()).
				Warn("Client send buffer full, dropping event")
		}
	}
}

// enqueue offers a message to the client's send buffer without blocking.
func (c *Client) enqueue(msg message) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Debug("Websocket read error")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))

		var msg message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.logger.WithField("client_id", c.id.String()).
				Warn("Ignoring malformed client message")
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg message) {
	switch msg.Type {
	case "register_wallet":
		if msg.WalletAddress == "" {
			return
		}
		c.setWallet(msg.WalletAddress)
		c.hub.logger.WithFields(logrus.Fields{
			"client_id": c.id.String(),
			"wallet":    msg.WalletAddress,
		}).Info("Client registered wallet filter")
		c.enqueue(message{Type: "registration_success", WalletAddress: msg.WalletAddress})

	case "ping":
		// Liveness check; does not affect filter or delivery state.
		c.enqueue(message{Type: "pong", Timestamp: time.Now().UTC().Format(time.RFC3339)})

	default:
		c.hub.logger.WithFields(logrus.Fields{
			"client_id": c.id.String(),
			"type":      msg.Type,
		}).Debug("Unknown client message type")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
