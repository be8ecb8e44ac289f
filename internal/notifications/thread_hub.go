// Package notifications provides real-time delivery of chat and swap events.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"rewear/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// dedupRingSize bounds the per-thread window of recently seen event IDs.
// Redis pub/sub delivers at least once when multiple server instances
// subscribe; the ring keeps redelivery invisible to clients.
const dedupRingSize = 128

// ThreadHub manages WebSocket connections for per-listing chat threads.
// Delivery is thread-centric: a member subscribes to the threads they are
// viewing, and every active device of a subscribed member gets each event.
type ThreadHub struct {
	mu sync.RWMutex

	// threadID -> set of subscribed userIDs
	threads map[uint]map[uint]struct{}

	// userID -> set of threadIDs they are actively viewing
	userActiveThreads map[uint]map[uint]struct{}

	// userID -> set of active Clients (multi-device support)
	userConns map[uint]map[*Client]bool

	// threadID -> ring of recently delivered event IDs
	seen map[uint]*eventRing

	// userID -> ring of recently delivered per-user event IDs
	seenUser map[uint]*eventRing
}

// Name returns a human-readable identifier for this hub.
func (h *ThreadHub) Name() string { return "thread hub" }

// ThreadEvent is the envelope broadcast to thread subscribers.
type ThreadEvent struct {
	// EventID deduplicates redelivered events; empty IDs skip dedup.
	EventID  string      `json:"event_id,omitempty"`
	Type     string      `json:"type"` // "message", "read", "typing", "swap_update"
	ThreadID uint        `json:"thread_id"`
	UserID   uint        `json:"user_id,omitempty"`
	Payload  interface{} `json:"payload"`
}

type eventRing struct {
	ids   [dedupRingSize]string
	index map[string]struct{}
	next  int
}

func newEventRing() *eventRing {
	return &eventRing{index: make(map[string]struct{}, dedupRingSize)}
}

// remember returns false if the ID was already in the window.
func (r *eventRing) remember(id string) bool {
	if _, ok := r.index[id]; ok {
		return false
	}
	if old := r.ids[r.next]; old != "" {
		delete(r.index, old)
	}
	r.ids[r.next] = id
	r.index[id] = struct{}{}
	r.next = (r.next + 1) % dedupRingSize
	return true
}

// NewThreadHub creates a new ThreadHub instance.
func NewThreadHub() *ThreadHub {
	return &ThreadHub{
		threads:           make(map[uint]map[uint]struct{}),
		userActiveThreads: make(map[uint]map[uint]struct{}),
		userConns:         make(map[uint]map[*Client]bool),
		seen:              make(map[uint]*eventRing),
		seenUser:          make(map[uint]*eventRing),
	}
}

// Register registers a user's websocket connection. Returns the Client or an
// error if the per-user device limit is exceeded.
func (h *ThreadHub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.userConns[userID] == nil {
		h.userConns[userID] = make(map[*Client]bool)
	}
	if len(h.userConns[userID]) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, fmt.Errorf("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	h.userConns[userID][client] = true
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	log.Printf("ThreadHub: Registered user %d (Active clients: %d)", userID, len(h.userConns[userID]))
	return client, nil
}

// UnregisterClient removes a websocket connection and, when the user's last
// device disconnects, cleans up their thread subscriptions.
func (h *ThreadHub) UnregisterClient(client *Client) {
	h.mu.Lock()

	clients, ok := h.userConns[client.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	observability.WebSocketConnectionsTotal.Dec()

	if len(clients) > 0 {
		h.mu.Unlock()
		log.Printf("ThreadHub: Unregistered client for user %d (Remaining clients: %d)", client.UserID, len(clients))
		return
	}
	delete(h.userConns, client.UserID)

	if threads, ok := h.userActiveThreads[client.UserID]; ok {
		for threadID := range threads {
			if users, ok := h.threads[threadID]; ok {
				delete(users, client.UserID)
				if len(users) == 0 {
					delete(h.threads, threadID)
					delete(h.seen, threadID)
				}
			}
			observability.WebSocketThreadConnections.WithLabelValues(fmt.Sprint(threadID)).Dec()
		}
		delete(h.userActiveThreads, client.UserID)
	}
	delete(h.seenUser, client.UserID)

	h.mu.Unlock()
	log.Printf("ThreadHub: Unregistered user %d (All connections closed)", client.UserID)
}

// IsUserOnline returns true when the user has at least one active client.
func (h *ThreadHub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.userConns[userID]
	return ok && len(clients) > 0
}

// JoinThread subscribes a connected user to a thread's events.
func (h *ThreadHub) JoinThread(userID, threadID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.userConns[userID]; !ok {
		log.Printf("ThreadHub: User %d not connected, cannot join thread %d", userID, threadID)
		return
	}

	if h.threads[threadID] == nil {
		h.threads[threadID] = make(map[uint]struct{})
	}
	if _, already := h.threads[threadID][userID]; already {
		return
	}
	h.threads[threadID][userID] = struct{}{}

	if h.userActiveThreads[userID] == nil {
		h.userActiveThreads[userID] = make(map[uint]struct{})
	}
	h.userActiveThreads[userID][threadID] = struct{}{}

	observability.WebSocketThreadConnections.WithLabelValues(fmt.Sprint(threadID)).Inc()
	log.Printf("ThreadHub: User %d joined thread %d", userID, threadID)
}

// LeaveThread unsubscribes a user from a thread.
func (h *ThreadHub) LeaveThread(userID, threadID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if users, ok := h.threads[threadID]; ok {
		if _, subscribed := users[userID]; !subscribed {
			return
		}
		delete(users, userID)
		if len(users) == 0 {
			delete(h.threads, threadID)
			delete(h.seen, threadID)
		}
	}
	if threads, ok := h.userActiveThreads[userID]; ok {
		delete(threads, threadID)
	}

	observability.WebSocketThreadConnections.WithLabelValues(fmt.Sprint(threadID)).Dec()
	log.Printf("ThreadHub: User %d left thread %d", userID, threadID)
}

// BroadcastToThread sends an event to every device of every subscriber.
// Events carrying an EventID already seen in the thread's window are dropped.
func (h *ThreadHub) BroadcastToThread(threadID uint, event ThreadEvent) {
	event.ThreadID = threadID

	h.mu.Lock()
	users, ok := h.threads[threadID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if event.EventID != "" {
		ring, ok := h.seen[threadID]
		if !ok {
			ring = newEventRing()
			h.seen[threadID] = ring
		}
		if !ring.remember(event.EventID) {
			h.mu.Unlock()
			return
		}
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		h.mu.Unlock()
		log.Printf("ThreadHub: Failed to marshal event: %v", err)
		return
	}

	recipients := make([]*Client, 0, len(users))
	for userID := range users {
		for client := range h.userConns[userID] {
			recipients = append(recipients, client)
		}
	}
	h.mu.Unlock()

	for _, client := range recipients {
		client.TrySend(eventJSON)
	}

	observability.MessageThroughput.WithLabelValues(fmt.Sprint(threadID), event.Type).Inc()
}

// BroadcastToUser sends an event to every device of one member regardless of
// thread subscriptions. Used for swap lifecycle notices. Events carrying an
// EventID already seen in the member's window are dropped.
func (h *ThreadHub) BroadcastToUser(userID uint, event ThreadEvent) {
	h.mu.Lock()
	if len(h.userConns[userID]) == 0 {
		h.mu.Unlock()
		return
	}
	if event.EventID != "" {
		ring, ok := h.seenUser[userID]
		if !ok {
			ring = newEventRing()
			h.seenUser[userID] = ring
		}
		if !ring.remember(event.EventID) {
			h.mu.Unlock()
			return
		}
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		h.mu.Unlock()
		log.Printf("ThreadHub: Failed to marshal event: %v", err)
		return
	}

	recipients := make([]*Client, 0, len(h.userConns[userID]))
	for client := range h.userConns[userID] {
		recipients = append(recipients, client)
	}
	h.mu.Unlock()

	for _, client := range recipients {
		client.TrySend(eventJSON)
	}
}

// ActiveUsers returns the userIDs currently viewing a thread.
func (h *ThreadHub) ActiveUsers(threadID uint) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users, ok := h.threads[threadID]
	if !ok {
		return []uint{}
	}
	result := make([]uint, 0, len(users))
	for userID := range users {
		result = append(result, userID)
	}
	return result
}

// StartWiring connects the hub to Redis pub/sub for thread and user events.
func (h *ThreadHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartThreadSubscriber(ctx, func(channel, payload string) {
		var event ThreadEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			log.Printf("ThreadHub: Failed to parse event from channel %s: %v", channel, err)
			return
		}

		var threadID, userID uint
		switch {
		case scanChannel(channel, "chat:thread:%d", &threadID):
			if event.Type == "" {
				event.Type = "message"
			}
			h.BroadcastToThread(threadID, event)
		case scanChannel(channel, "typing:thread:%d", &threadID):
			if event.Type == "" {
				event.Type = "typing"
			}
			h.BroadcastToThread(threadID, event)
		case scanChannel(channel, "swaps:user:%d", &userID):
			if event.Type == "" {
				event.Type = "swap_update"
			}
			h.BroadcastToUser(userID, event)
		default:
			log.Printf("ThreadHub: Invalid channel format: %s", channel)
		}
	})
}

func scanChannel(channel, format string, id *uint) bool {
	_, err := fmt.Sscanf(channel, format, id)
	return err == nil
}

// Shutdown gracefully closes all websocket connections.
func (h *ThreadHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.userConns {
		for client := range clients {
			if err := client.Conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"type":"server_shutdown","payload":{"message":"Server is shutting down"}}`)); err != nil {
				log.Printf("failed to write shutdown message for user %d: %v", userID, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("failed to close websocket for user %d: %v", userID, err)
			}
		}
	}

	h.threads = make(map[uint]map[uint]struct{})
	h.userActiveThreads = make(map[uint]map[uint]struct{})
	h.userConns = make(map[uint]map[*Client]bool)
	h.seen = make(map[uint]*eventRing)
	h.seenUser = make(map[uint]*eventRing)

	return nil
}
