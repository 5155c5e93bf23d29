package replication

import (
	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

type WebSocketController struct {
	hub    *Hub
	logger *zap.Logger
}

func NewWebSocketController(hub *Hub, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{hub: hub, logger: logger}
}

// HandleWebSocket streams request events to one viewer. ?request_id= narrows the stream
// to a single request.
func (h *WebSocketController) HandleWebSocket(c *websocket.Conn) {
	cl := h.hub.register(c.Query("request_id"))
	defer h.hub.unregister(cl)

	// Reader: viewers only send keepalives; a read error means the viewer left.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			if !ok {
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-closed:
			return
		}
	}
}
