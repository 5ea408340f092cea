package events

import (
	"errors"
	"sync"
)

var (
	// ErrBufferFull is returned by Publish when the hub cannot keep up.
	ErrBufferFull = errors.New("event buffer full")
	// ErrStopped is returned after Stop.
	ErrStopped = errors.New("event hub stopped")
)

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub manages stream subscriptions by team ID.
type Hub struct {
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
	done      chan struct{}
	stopOnce  sync.Once
}

// message couples payload with team identifier.
type message struct {
	teamID  string
	payload []byte
}

// subscription defines register/unregister requests.
type subscription struct {
	teamID string
	client Subscriber
}

// NewHub creates an initialized Hub. buffer bounds the queued broadcasts.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message, buffer),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			for _, clients := range h.clients {
				for c := range clients {
					c.Close()
				}
			}
			h.clients = nil
			return
		case sub := <-h.register:
			if _, ok := h.clients[sub.teamID]; !ok {
				h.clients[sub.teamID] = make(map[Subscriber]struct{})
			}
			h.clients[sub.teamID][sub.client] = struct{}{}
		case sub := <-h.unreg:
			if clients, ok := h.clients[sub.teamID]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.clients, sub.teamID)
				}
			}
		case msg := <-h.broadcast:
			if clients, ok := h.clients[msg.teamID]; ok {
				for c := range clients {
					if err := c.Send(msg.payload); err != nil {
						c.Close()
						delete(clients, c)
					}
				}
				if len(clients) == 0 {
					delete(h.clients, msg.teamID)
				}
			}
		}
	}
}

// Register adds a client to a team stream.
func (h *Hub) Register(teamID string, client Subscriber) {
	select {
	case h.register <- subscription{teamID: teamID, client: client}:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(teamID string, client Subscriber) {
	select {
	case h.unreg <- subscription{teamID: teamID, client: client}:
	case <-h.done:
	}
}

// Broadcast queues payload for all team clients without blocking.
func (h *Hub) Broadcast(teamID string, payload []byte) error {
	select {
	case <-h.done:
		return ErrStopped
	default:
	}
	select {
	case h.broadcast <- message{teamID: teamID, payload: payload}:
		return nil
	default:
		return ErrBufferFull
	}
}

// Publish encodes e and broadcasts it to subscribers of e.TeamID.
func (h *Hub) Publish(e Event) error {
	payload, err := encode(e)
	if err != nil {
		return err
	}
	return h.Broadcast(e.TeamID, payload)
}

// Stop closes every subscriber and ends the run loop.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
