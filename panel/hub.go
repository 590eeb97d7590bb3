package panel

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Update is pushed to every websocket client when a region changes.
type Update struct {
	Region string   `json:"region"`
	Lines  []string `json:"lines"`
}

// writeWait bounds every websocket write.
const writeWait = 10 * time.Second

// Hub fans region updates out to the connected websocket clients.
// Clients that fail or time out on a write are dropped.
type Hub struct {
	logger    *zap.SugaredLogger
	updates   chan Update
	done      chan struct{}
	writeWait time.Duration

	mu      sync.Mutex
	clients []*websocket.Conn
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		logger:    logger,
		updates:   make(chan Update, 1),
		done:      make(chan struct{}),
		writeWait: writeWait,
	}
}

// Publish queues an update without ever waiting on the clients. It is shaped
// to be a display.Buffer change hook. An update still queued when the next
// one arrives is replaced by it.
func (h *Hub) Publish(region string, lines []string) {
	if lines == nil {
		lines = []string{}
	}
	u := Update{Region: region, Lines: lines}
	for {
		select {
		case <-h.done:
			return
		case h.updates <- u:
			return
		default:
		}
		// drop the stale update and retry
		select {
		case <-h.updates:
		default:
		}
	}
}

// Run delivers queued updates until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for _, c := range h.clients {
			c.Close()
		}
		h.clients = nil
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case u := <-h.updates:
			msg, err := json.Marshal(u)
			if err != nil {
				h.logger.Errorf("Failed to marshal region update: %v", err)
				continue
			}
			h.broadcast(msg)
		}
	}
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	deadstreams := []int{}
	for i, c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debugf("Dropping panel client: %v", err)
			deadstreams = append(deadstreams, i)
		}
	}
	// remove dead streams now
	for i := len(deadstreams) - 1; i > -1; i-- {
		idx := deadstreams[i]
		h.clients[idx].Close()
		h.clients = append(h.clients[:idx], h.clients[idx+1:]...)
	}
}

// add registers c after sending it the current content of the region.
func (h *Hub) add(c *websocket.Conn, current Update) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.SetWriteDeadline(time.Now().Add(h.writeWait))
	if err := c.WriteJSON(current); err != nil {
		return err
	}
	h.clients = append(h.clients, c)
	return nil
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, cs := range h.clients {
		if cs == c {
			h.clients = append(h.clients[:i], h.clients[i+1:]...)
			break
		}
	}
	c.Close()
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
