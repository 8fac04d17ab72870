package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// client is one websocket connection. The owning hub closes send; the
// pumps only ever close conn.
type client struct {
	conn      *websocket.Conn
	send      chan []byte
	personID  string
	societyID string
	allowAll  bool
}

func newClient(conn *websocket.Conn, personID, societyID string, allowAll bool) *client {
	return &client{
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		personID:  personID,
		societyID: societyID,
		allowAll:  allowAll,
	}
}

// readPump discards inbound frames and keeps the read deadline fresh.
// It returns when the peer goes away, after calling done.
func (c *client) readPump(done func()) {
	defer func() {
		done()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
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
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			if err := w.Close(); err != nil {
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
