package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/drawbridge-app/drawbridge/internal/protocol"
	"github.com/drawbridge-app/drawbridge/internal/ratelimit"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024
	sendBuffer     = 256

	// disconnect a client that keeps flooding past the limiter
	maxRateLimitStrikes = 1000
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one live websocket connection. The hub assigns it a
// connection ID at upgrade time; that ID is the participant's primary
// key everywhere downstream.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	connID  string
	limiter *ratelimit.Limiter
}

// ServeWS upgrades an HTTP request to a websocket connection and starts
// its pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}

	connID := uuid.NewString()
	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		connID:  connID,
		limiter: h.limiters.Get(connID),
	}
	h.add(client)

	slog.Info("connection opened", "conn", connID, "remote", conn.RemoteAddr().String())

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.relay.HandleDisconnect(c.connID)
		c.hub.remove(c)
		c.conn.Close()
		slog.Info("connection closed", "conn", c.connID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	strikes := 0

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket read error", "conn", c.connID, "err", err)
			}
			break
		}

		if !c.limiter.Allow() {
			strikes++
			if strikes%100 == 1 {
				slog.Warn("rate limit exceeded", "conn", c.connID, "strikes", strikes)
			}
			if strikes > maxRateLimitStrikes {
				slog.Warn("disconnecting client for excessive rate limit violations", "conn", c.connID)
				return
			}
			continue
		}

		env, err := protocol.Decode(data)
		if err != nil {
			c.hub.Deliver(c.connID, protocol.NewEnvelope(protocol.EventError, protocol.ErrorPayload{
				Reason: err.Error(),
			}))
			continue
		}

		c.hub.relay.HandleEvent(c.connID, env)
	}
}

func (c *Client) writePump() {
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
