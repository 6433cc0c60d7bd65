package main

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWS upgrades the request and pumps messages between the socket and the
// hub until either side gives up. The room is named by each event, not by the
// URL, so one socket may play in several rooms.
func serveWS(cfg *Config, hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := newClient(uuid.NewString(), cfg.sendBuffer)

		if !hub.connect(client) {
			_ = conn.Close()
			return
		}

		logf(cfg, "CONNS: Websocket %s from %s", client.id, realIP(r))

		go client.writePump(conn, cfg.pingInterval)
		client.readPump(cfg, hub, conn)
	}
}

func (c *Client) readPump(cfg *Config, h *Hub, conn *websocket.Conn) {
	defer func() {
		h.leave(c)
		_ = conn.Close()
	}()

	pongWait := cfg.pingInterval * 2

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		ev, err := decodeEvent(data)
		if err != nil {
			logf(cfg, "CONNS: Ignoring event from %s: %v", c.id, err)
			continue
		}

		if !h.dispatch(c, ev) {
			return
		}
	}
}

// writePump owns all writes to conn. It exits when the hub closes c.send.
func (c *Client) writePump(conn *websocket.Conn, pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
