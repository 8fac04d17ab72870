package ws

import "context"

// residentNotification targets one person, or every resident of societyID
// when personID is empty.
type residentNotification struct {
	personID  string
	societyID string
	payload   []byte
}

// ResidentHub keeps at most one connection per person; a newer connection
// replaces the older one.
type ResidentHub struct {
	register   chan *client
	unregister chan *client
	notify     chan residentNotification
	count      chan chan int
	done       chan struct{}
	clients    map[string]*client
}

func NewResidentHub() *ResidentHub {
	return &ResidentHub{
		register:   make(chan *client),
		unregister: make(chan *client),
		notify:     make(chan residentNotification, 256),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		clients:    make(map[string]*client),
	}
}

func (h *ResidentHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for id, c := range h.clients {
				delete(h.clients, id)
				close(c.send)
				c.conn.Close()
			}
			return
		case c := <-h.register:
			if existing, ok := h.clients[c.personID]; ok {
				close(existing.send)
				existing.conn.Close()
			}
			h.clients[c.personID] = c
		case c := <-h.unregister:
			if stored, ok := h.clients[c.personID]; ok && stored == c {
				delete(h.clients, c.personID)
				close(c.send)
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		case msg := <-h.notify:
			if msg.personID != "" {
				if c, ok := h.clients[msg.personID]; ok {
					h.deliver(c, msg.payload)
				}
				continue
			}
			for _, c := range h.clients {
				if c.societyID == msg.societyID {
					h.deliver(c, msg.payload)
				}
			}
		}
	}
}

// deliver drops c when its send buffer is full. Only Run calls it.
func (h *ResidentHub) deliver(c *client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		delete(h.clients, c.personID)
		close(c.send)
		c.conn.Close()
	}
}

// Notify queues payload for personID without blocking.
func (h *ResidentHub) Notify(personID string, payload []byte) bool {
	if h == nil {
		return false
	}
	select {
	case h.notify <- residentNotification{personID: personID, payload: payload}:
		return true
	default:
		return false
	}
}

// NotifySociety queues payload for every connected resident of societyID.
func (h *ResidentHub) NotifySociety(societyID string, payload []byte) bool {
	if h == nil || societyID == "" {
		return false
	}
	select {
	case h.notify <- residentNotification{societyID: societyID, payload: payload}:
		return true
	default:
		return false
	}
}

func (h *ResidentHub) Clients() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *ResidentHub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *ResidentHub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
