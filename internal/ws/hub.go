// Package ws pushes newly published replies to open viewers of a post.
// Delivery is best effort: a slow client is dropped rather than allowed to
// stall the hub, and viewers can always fall back to polling.
package ws

import (
	"encoding/json"

	"github.com/sujalbistaa/murmur/internal/models"

	. "github.com/sujalbistaa/murmur/internal/log"
)

// Message is the JSON envelope the frontend expects.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type envelope struct {
	postID  string
	payload []byte
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set. Start it once in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				if c.postID != "" && c.postID != msg.postID {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
		case <-h.done:
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.done)
}

// ReplyPublished queues a "new_reply" message for viewers of the reply's
// post. It never blocks the caller.
func (h *Hub) ReplyPublished(reply models.Reply) {
	h.publish(reply.PostID, Message{Type: "new_reply", Data: reply})
}

func (h *Hub) publish(postID string, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		Log.WithError(err).Error("error marshalling ws message")
		return
	}
	select {
	case h.broadcast <- envelope{postID: postID, payload: payload}:
	default:
		Log.WithField("post_id", postID).Warn("ws broadcast queue full, dropping message")
	}
}
