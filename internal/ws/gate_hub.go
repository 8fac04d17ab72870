package ws

import "context"

type gateMessage struct {
	societyID string
	payload   []byte
}

// GateHub fans events out to gate dashboards. Clients only receive events
// for their own society unless allowAll is set (super admins).
type GateHub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan gateMessage
	count      chan chan int
	done       chan struct{}
	clients    map[*client]struct{}
}

func NewGateHub() *GateHub {
	return &GateHub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan gateMessage, 256),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
	}
}

func (h *GateHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		case msg := <-h.broadcast:
			for c := range h.clients {
				if !c.allowAll && c.societyID != msg.societyID {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					h.drop(c)
				}
			}
		}
	}
}

func (h *GateHub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	c.conn.Close()
}

// Broadcast queues payload for societyID. It never blocks; when the queue
// is full the message is dropped and false is returned.
func (h *GateHub) Broadcast(societyID string, payload []byte) bool {
	if h == nil {
		return false
	}
	select {
	case h.broadcast <- gateMessage{societyID: societyID, payload: payload}:
		return true
	default:
		return false
	}
}

// Clients returns the number of connected dashboards.
func (h *GateHub) Clients() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *GateHub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *GateHub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
