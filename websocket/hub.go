package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"realtime-scoring-backend/mq"
	"realtime-scoring-backend/scoring"

	"github.com/gorilla/websocket"
)

// Message types sent to live subscribers.
const (
	TypeResults = "results"
	TypeDeleted = "deleted"
)

// Message is the JSON frame pushed to a subscriber.
type Message struct {
	Type    string           `json:"type"`
	PollID  string           `json:"pollId"`
	Version int64            `json:"version"`
	Results *scoring.Results `json:"results,omitempty"`
}

// MessageFor converts a poll update into the frame subscribers receive.
func MessageFor(u mq.PollUpdate) Message {
	msg := Message{Type: TypeResults, PollID: u.PollID, Version: u.Version, Results: u.Results}
	if u.Deleted {
		msg.Type = TypeDeleted
		msg.Results = nil
	}
	return msg
}

// Client 代表一个WebSocket连接客户端
type Client struct {
	PollID string

	conn *websocket.Conn
	send chan []byte

	// highest poll version already sent; owned by the hub goroutine
	lastVersion int64
}

// NewClient creates a subscriber for one poll. conn may be nil in tests.
func NewClient(pollID string, conn *websocket.Conn) *Client {
	return &Client{PollID: pollID, conn: conn, send: make(chan []byte, 32)}
}

// Send exposes the outgoing frame queue.
func (c *Client) Send() <-chan []byte {
	return c.send
}

type registration struct {
	client  *Client
	initial *mq.PollUpdate
}

// Hub 维护活跃的客户端集合，并把投票更新推送给订阅该投票的客户端
type Hub struct {
	bus mq.EventBus

	clients    map[string]map[*Client]bool
	register   chan registration
	offers     chan registration
	unregister chan *Client
	done       chan struct{}

	mu    sync.RWMutex
	count int
}

// NewHub 创建一个新的Hub
func NewHub(bus mq.EventBus) *Hub {
	return &Hub{
		bus:        bus,
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan registration),
		offers:     make(chan registration),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run 启动Hub消息处理循环，直到ctx结束
func (h *Hub) Run(ctx context.Context) {
	updates, unsubscribe := h.bus.Subscribe()
	defer func() {
		unsubscribe()
		h.closeAll()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case reg := <-h.register:
			c := reg.client
			if h.clients[c.PollID] == nil {
				h.clients[c.PollID] = make(map[*Client]bool)
			}
			h.clients[c.PollID][c] = true
			h.adjustCount(1)
			if reg.initial != nil {
				h.deliver(c, *reg.initial)
			}
			slog.Debug("live client registered", "poll_id", c.PollID, "clients", len(h.clients[c.PollID]))

		case o := <-h.offers:
			if h.clients[o.client.PollID][o.client] {
				h.deliver(o.client, *o.initial)
			}

		case c := <-h.unregister:
			h.remove(c)

		case u, ok := <-updates:
			if !ok {
				return
			}
			for c := range h.clients[u.PollID] {
				h.deliver(c, u)
			}
		}
	}
}

// Register adds a client. initial, when set, is sent first so the client
// starts from the current state.
func (h *Hub) Register(c *Client, initial *mq.PollUpdate) {
	select {
	case h.register <- registration{client: c, initial: initial}:
	case <-h.done:
		close(c.send)
	}
}

// Offer hands a registered client a state read after it registered. It goes
// through the same version filter as bus updates, so a snapshot older than
// what the client already received is dropped.
func (h *Hub) Offer(c *Client, u mq.PollUpdate) {
	select {
	case h.offers <- registration{client: c, initial: &u}:
	case <-h.done:
	}
}

// Unregister removes a client and closes its send queue.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount reports the number of connected live clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// deliver drops updates that are not newer than what the client has seen.
func (h *Hub) deliver(c *Client, u mq.PollUpdate) {
	if u.Version <= c.lastVersion {
		return
	}

	payload, err := json.Marshal(MessageFor(u))
	if err != nil {
		slog.Error("marshal live message failed", "poll_id", u.PollID, "error", err)
		return
	}

	select {
	case c.send <- payload:
		c.lastVersion = u.Version
	default:
		// 客户端发送缓冲区已满，断开连接
		slog.Warn("live client too slow, disconnecting", "poll_id", c.PollID)
		h.remove(c)
	}
}

func (h *Hub) remove(c *Client) {
	clients, ok := h.clients[c.PollID]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.clients, c.PollID)
	}
	h.adjustCount(-1)
	close(c.send)
}

func (h *Hub) closeAll() {
	for _, clients := range h.clients {
		for c := range clients {
			h.remove(c)
		}
	}
}

func (h *Hub) adjustCount(delta int) {
	h.mu.Lock()
	h.count += delta
	h.mu.Unlock()
}
