package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ikkim/annualreport-backend/pkg/logger"
)

const (
	// Rate limiting: max inbound messages per second per client
	maxMessagesPerSecond = 10

	sendBufferSize = 256
)

// ClientMessage is a control message sent by a dashboard client.
type ClientMessage struct {
	Type    string `json:"type"` // subscribe, unsubscribe
	TaxYear int    `json:"tax_year"`
}

// BoardEvent is the envelope pushed to subscribed clients.
type BoardEvent struct {
	Type    string      `json:"type"`
	TaxYear int         `json:"tax_year"`
	Data    interface{} `json:"data,omitempty"`
	SentAt  time.Time   `json:"sent_at"`
}

// Client is one connected dashboard session.
type Client struct {
	Hub    *Hub
	Conn   *Conn
	UserID uint
	Send   chan []byte

	taxYears map[int]bool
	mu       sync.RWMutex

	messageCount  int
	lastResetTime time.Time
	rateMu        sync.Mutex
}

func NewClient(hub *Hub, conn *Conn, userID uint) *Client {
	return &Client{
		Hub:           hub,
		Conn:          conn,
		UserID:        userID,
		Send:          make(chan []byte, sendBufferSize),
		taxYears:      make(map[int]bool),
		lastResetTime: time.Now(),
	}
}

// TaxYears returns the years the client is watching.
func (c *Client) TaxYears() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	years := make([]int, 0, len(c.taxYears))
	for y := range c.taxYears {
		years = append(years, y)
	}
	return years
}

type broadcastMessage struct {
	taxYear int
	payload []byte
}

// Hub fans board events out to clients grouped by tax year.
type Hub struct {
	clients map[*Client]bool

	// tax year -> watching clients
	rooms map[int]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[int]map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *broadcastMessage, 1024),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("Board client registered", map[string]interface{}{
				"user_id": client.UserID,
				"total":   total,
			})

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.rooms[message.taxYear] {
				select {
				case client.Send <- message.payload:
				default:
					go h.Unregister(client)
					logger.Warn("Board client send buffer full, disconnecting", map[string]interface{}{
						"user_id": client.UserID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}
	delete(h.clients, client)

	client.mu.RLock()
	for year := range client.taxYears {
		if watchers, ok := h.rooms[year]; ok {
			delete(watchers, client)
			if len(watchers) == 0 {
				delete(h.rooms, year)
			}
		}
	}
	client.mu.RUnlock()

	close(client.Send)
	logger.Info("Board client unregistered", map[string]interface{}{
		"user_id":   client.UserID,
		"remaining": len(h.clients),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]bool)
	h.rooms = make(map[int]map[*Client]bool)
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds the client to a tax year's room.
func (h *Hub) Subscribe(client *Client, taxYear int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	client.taxYears[taxYear] = true
	client.mu.Unlock()

	if _, ok := h.rooms[taxYear]; !ok {
		h.rooms[taxYear] = make(map[*Client]bool)
	}
	h.rooms[taxYear][client] = true

	logger.Debug("Board client subscribed", map[string]interface{}{
		"user_id":  client.UserID,
		"tax_year": taxYear,
	})
}

func (h *Hub) Unsubscribe(client *Client, taxYear int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	delete(client.taxYears, taxYear)
	client.mu.Unlock()

	if watchers, ok := h.rooms[taxYear]; ok {
		delete(watchers, client)
		if len(watchers) == 0 {
			delete(h.rooms, taxYear)
		}
	}
}

// SubscriberCount returns how many clients watch the tax year.
func (h *Hub) SubscriberCount(taxYear int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[taxYear])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues an event for everyone watching taxYear. Events are dropped
// when the broadcast queue is full.
func (h *Hub) Publish(taxYear int, event string, payload interface{}) {
	data, err := json.Marshal(BoardEvent{
		Type:    event,
		TaxYear: taxYear,
		Data:    payload,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		logger.Error("Failed to marshal board event", err, map[string]interface{}{
			"event":    event,
			"tax_year": taxYear,
		})
		return
	}

	select {
	case h.broadcast <- &broadcastMessage{taxYear: taxYear, payload: data}:
	default:
		logger.Warn("Board broadcast queue full, event dropped", map[string]interface{}{
			"event":    event,
			"tax_year": taxYear,
		})
	}
}

// HandleClientMessage applies a subscribe or unsubscribe request and
// acknowledges it on the client's own channel.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.rateMu.Lock()
	now := time.Now()
	if now.Sub(client.lastResetTime) >= time.Second {
		client.messageCount = 0
		client.lastResetTime = now
	}
	client.messageCount++
	count := client.messageCount
	client.rateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
			"count":   count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse board client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}
	if msg.TaxYear <= 0 {
		return
	}

	var ack string
	switch msg.Type {
	case "subscribe":
		h.Subscribe(client, msg.TaxYear)
		ack = "subscribed"
	case "unsubscribe":
		h.Unsubscribe(client, msg.TaxYear)
		ack = "unsubscribed"
	default:
		return
	}

	data, _ := json.Marshal(BoardEvent{Type: ack, TaxYear: msg.TaxYear, SentAt: time.Now().UTC()})
	select {
	case client.Send <- data:
	default:
	}
}
