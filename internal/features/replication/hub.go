package replication

import (
	"context"
	"encoding/json"
	"sync"

	"go-hr/internal/metrics"

	"go.uber.org/zap"
)

const clientBuffer = 32

// client is one connected viewer. An empty requestID receives every event.
type client struct {
	requestID string
	send      chan []byte
}

// Hub merges bus events into its Replica and forwards the ones that changed it to
// connected viewers.
type Hub struct {
	bus     EventBus
	replica *Replica
	logger  *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}

	stop func()
}

func NewHub(bus EventBus, logger *zap.Logger) *Hub {
	return &Hub{
		bus:     bus,
		replica: NewReplica(),
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) Replica() *Replica { return h.replica }

func (h *Hub) Start(context.Context) error {
	h.stop = Handle(h.bus, h.handle)
	return nil
}

func (h *Hub) Stop(context.Context) error {
	if h.stop != nil {
		h.stop()
	}
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	return nil
}

func (h *Hub) handle(evt Event) {
	if !h.replica.Apply(evt) {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Warn("Failed to encode replication event", zap.String("request_id", evt.RequestID), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.requestID != "" && c.requestID != evt.RequestID {
			continue
		}
		select {
		case c.send <- payload:
		default:
			h.logger.Debug("Viewer too slow, dropping event", zap.String("request_id", evt.RequestID))
		}
	}
}

func (h *Hub) register(requestID string) *client {
	c := &client{requestID: requestID, send: make(chan []byte, clientBuffer)}

	// Seed a filtered viewer with the latest known copy.
	if requestID != "" {
		if e, ok := h.replica.Get(requestID); ok {
			if payload, err := json.Marshal(Event{Type: EventUpdated, RequestID: requestID, Status: e.Status, Version: e.Version, Snapshot: e.Snapshot}); err == nil {
				c.send <- payload
			}
		}
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.ReplicationSubscribers.Inc()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		metrics.ReplicationSubscribers.Dec()
	}
	h.mu.Unlock()
}
