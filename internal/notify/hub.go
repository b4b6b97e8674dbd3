package notify

import (
	"sync"

	"shopora/internal/domain"

	"github.com/google/uuid"
)

// subscriberBuffer bounds how far a slow client may lag before live events
// are dropped for it; the persisted record remains its fallback.
const subscriberBuffer = 16

// Subscriber is one live connection joined to a user's channel.
type Subscriber struct {
	ID     string
	UserID string
	C      chan domain.Notification
}

// Hub fans notifications out to live connections. Delivery is
// fire-and-forget: a full subscriber channel drops the event instead of
// blocking the emitting operation.
type Hub struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Subscriber
}

func NewHub() *Hub {
	return &Hub{byUser: make(map[string]map[string]*Subscriber)}
}

// Subscribe joins a connection to the given user's channel.
func (h *Hub) Subscribe(userID string) *Subscriber {
	sub := &Subscriber{
		ID:     uuid.NewString(),
		UserID: userID,
		C:      make(chan domain.Notification, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.byUser[userID]
	if !ok {
		subs = make(map[string]*Subscriber)
		h.byUser[userID] = subs
	}
	subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes the connection and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.byUser[sub.UserID]
	if !ok {
		return
	}
	if _, ok := subs[sub.ID]; !ok {
		return
	}
	delete(subs, sub.ID)
	if len(subs) == 0 {
		delete(h.byUser, sub.UserID)
	}
	close(sub.C)
}

// Publish delivers n to the recipient's connections, or to every connection
// when the notification is global (nil UserID).
func (h *Hub) Publish(n domain.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n.UserID != nil {
		for _, sub := range h.byUser[*n.UserID] {
			send(sub, n)
		}
		return
	}
	for _, subs := range h.byUser {
		for _, sub := range subs {
			send(sub, n)
		}
	}
}

func send(sub *Subscriber, n domain.Notification) {
	select {
	case sub.C <- n:
	default:
		// Slow subscriber; the persisted record is its fallback.
	}
}
