package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tidemark/beacon/internal/metrics"
)

const defaultPingInterval = 30 * time.Second

// Hub is the topic registry: it maps topic names to subscribed
// connections and fans published frames out to them. All registry
// mutations are serialized behind one mutex; none are long-running.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	topics  map[string]map[*Client]struct{}

	pingInterval time.Duration
	logger       *zap.Logger
}

// NewHub builds a Hub. A zero interval selects the 30s default.
func NewHub(pingInterval time.Duration, logger *zap.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:      make(map[*Client]struct{}),
		topics:       make(map[string]map[*Client]struct{}),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// ServeConn registers an upgraded connection and blocks pumping its
// frames until the connection closes.
func (h *Hub) ServeConn(conn *websocket.Conn) {
	c := newClient(h, conn)
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.ConnectionOpened()
	h.logger.Debug("connection opened", zap.String("conn", c.id))

	go c.writePump()
	c.readPump()
}

// Run probes liveness every interval until ctx is canceled, then closes
// every remaining connection.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.probe()
		}
	}
}

// probe sends a transport ping to every connection that answered the
// previous one and reaps those that did not. Reaping goes through the
// standard close path so topic membership stays consistent.
func (h *Hub) probe() {
	h.mu.Lock()
	conns := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if !c.alive.Swap(false) {
			h.logger.Info("closing unresponsive connection", zap.String("conn", c.id))
			h.drop(c)
			_ = c.conn.Close()
			continue
		}
		deadline := time.Now().Add(writeWait)
		if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			h.drop(c)
			_ = c.conn.Close()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		h.drop(c)
		_ = c.conn.Close()
	}
}

func (h *Hub) handle(c *Client, frame Frame) {
	switch frame.Type {
	case FrameSubscribe:
		h.subscribe(c, frame.Topics)
	case FrameUnsubscribe:
		h.unsubscribe(c, frame.Topics)
	case FramePublish:
		h.publish(c, frame)
	case FramePing:
		h.deliver(c, pongPayload)
	}
}

// subscribe adds c to each named topic; re-subscribing is idempotent.
func (h *Hub) subscribe(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, open := h.clients[c]; !open {
		return
	}
	for _, topic := range topics {
		if topic == "" {
			continue
		}
		members, ok := h.topics[topic]
		if !ok {
			members = make(map[*Client]struct{})
			h.topics[topic] = members
		}
		members[c] = struct{}{}
		c.topics[topic] = struct{}{}
	}
	metrics.SetTopics(len(h.topics))
}

func (h *Hub) unsubscribe(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		delete(c.topics, topic)
		h.removeMemberLocked(topic, c)
	}
	metrics.SetTopics(len(h.topics))
}

// publish fans the frame out to every other member of the topic. An
// unknown topic is a silent no-op.
func (h *Hub) publish(sender *Client, frame Frame) {
	payload, err := json.Marshal(Frame{Type: FramePublish, Topic: frame.Topic, Data: frame.Data})
	if err != nil {
		sender.logger.Warn("dropping unencodable publish", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delivered := 0
	for member := range h.topics[frame.Topic] {
		if member == sender {
			continue
		}
		if h.deliverLocked(member, payload) {
			delivered++
		}
	}
	metrics.FramesPublished(delivered)
}

// deliver enqueues a payload for c if its connection is still open.
func (h *Hub) deliver(c *Client, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, open := h.clients[c]; open {
		h.deliverLocked(c, payload)
	}
}

// deliverLocked never blocks: a receiver whose send buffer is full
// loses the frame rather than stalling the topic.
func (h *Hub) deliverLocked(c *Client, payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		c.logger.Warn("send buffer full, dropping frame")
		return false
	}
}

// drop removes c from the registry and every topic it belongs to,
// deleting topics left empty. Safe to call more than once.
func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	if _, open := h.clients[c]; !open {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for topic := range c.topics {
		h.removeMemberLocked(topic, c)
	}
	c.topics = make(map[string]struct{})
	close(c.send)
	topicCount := len(h.topics)
	h.mu.Unlock()

	metrics.ConnectionClosed()
	metrics.SetTopics(topicCount)
	h.logger.Debug("connection closed", zap.String("conn", c.id))
}

func (h *Hub) removeMemberLocked(topic string, c *Client) {
	members, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.topics, topic)
	}
}

// ClientCount reports the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// TopicCount reports the number of topics with at least one member.
func (h *Hub) TopicCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics)
}
