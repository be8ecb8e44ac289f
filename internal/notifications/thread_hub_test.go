package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/stretchr/testify/assert"
)

// registerTestClient inserts a client without a real websocket connection.
func registerTestClient(hub *ThreadHub, client *Client) {
	client.Hub = hub
	hub.mu.Lock()
	if hub.userConns[client.UserID] == nil {
		hub.userConns[client.UserID] = make(map[*Client]bool)
	}
	hub.userConns[client.UserID][client] = true
	hub.mu.Unlock()
}

func TestThreadHub_RegisterUnregister(t *testing.T) {
	hub := NewThreadHub()
	client := &Client{
		UserID: 1,
		Send:   make(chan []byte, 10),
	}

	registerTestClient(hub, client)
	hub.mu.RLock()
	assert.Len(t, hub.userConns[1], 1)
	hub.mu.RUnlock()

	hub.UnregisterClient(client)
	hub.mu.RLock()
	assert.Empty(t, hub.userConns[1])
	hub.mu.RUnlock()
}

func TestThreadHub_BroadcastToThread(t *testing.T) {
	hub := NewThreadHub()
	client := &Client{
		UserID: 1,
		Send:   make(chan []byte, 10),
	}
	registerTestClient(hub, client)
	hub.JoinThread(1, 101)

	hub.BroadcastToThread(101, ThreadEvent{
		Type:    "message",
		Payload: "Hello",
	})

	sent := <-client.Send
	var received ThreadEvent
	err := json.Unmarshal(sent, &received)
	assert.NoError(t, err)
	assert.Equal(t, "message", received.Type)
	assert.Equal(t, uint(101), received.ThreadID)
}

func TestThreadHub_DedupWindow(t *testing.T) {
	hub := NewThreadHub()
	client := &Client{UserID: 1, Send: make(chan []byte, 10)}
	registerTestClient(hub, client)
	hub.JoinThread(1, 101)

	event := ThreadEvent{EventID: "evt-1", Type: "message", Payload: "Hello"}
	hub.BroadcastToThread(101, event)
	hub.BroadcastToThread(101, event)

	assert.Len(t, client.Send, 1, "redelivered event should be dropped")

	// A different event ID still goes through.
	hub.BroadcastToThread(101, ThreadEvent{EventID: "evt-2", Type: "message", Payload: "Again"})
	assert.Len(t, client.Send, 2)
}

func TestThreadHub_MultiDeviceSupport(t *testing.T) {
	hub := NewThreadHub()
	userID := uint(42)

	client1 := &Client{UserID: userID, Send: make(chan []byte, 10)}
	client2 := &Client{UserID: userID, Send: make(chan []byte, 10)}

	registerTestClient(hub, client1)
	registerTestClient(hub, client2)

	hub.mu.RLock()
	assert.Len(t, hub.userConns[userID], 2)
	hub.mu.RUnlock()

	hub.JoinThread(userID, 202)
	hub.BroadcastToThread(202, ThreadEvent{Type: "message", Payload: "Multi-device test"})

	select {
	case <-client1.Send:
	default:
		t.Error("client1 did not receive message")
	}

	select {
	case <-client2.Send:
	default:
		t.Error("client2 did not receive message")
	}
}

func TestThreadHub_BroadcastDoesNotReachNonSubscribers(t *testing.T) {
	hub := NewThreadHub()

	subscriber := &Client{UserID: 1, Send: make(chan []byte, 10)}
	outsider := &Client{UserID: 2, Send: make(chan []byte, 10)}

	registerTestClient(hub, subscriber)
	registerTestClient(hub, outsider)
	hub.JoinThread(1, 404)

	hub.BroadcastToThread(404, ThreadEvent{Type: "message", Payload: "Scoped fanout"})

	select {
	case <-subscriber.Send:
	default:
		t.Fatal("subscriber did not receive message")
	}

	select {
	case <-outsider.Send:
		t.Fatal("non-subscriber unexpectedly received message")
	default:
	}
}

func TestThreadHub_BroadcastToUser(t *testing.T) {
	hub := NewThreadHub()
	client := &Client{UserID: 9, Send: make(chan []byte, 10)}
	registerTestClient(hub, client)

	hub.BroadcastToUser(9, ThreadEvent{Type: "swap_update", Payload: "approved"})

	sent := <-client.Send
	var received ThreadEvent
	assert.NoError(t, json.Unmarshal(sent, &received))
	assert.Equal(t, "swap_update", received.Type)
}

func TestThreadHub_BroadcastToUserDedup(t *testing.T) {
	hub := NewThreadHub()
	client := &Client{UserID: 9, Send: make(chan []byte, 10)}
	registerTestClient(hub, client)

	event := ThreadEvent{EventID: "swap-evt-1", Type: "swap_update", Payload: "approved"}
	hub.BroadcastToUser(9, event)
	hub.BroadcastToUser(9, event)

	assert.Len(t, client.Send, 1, "redelivered event should be dropped")

	hub.BroadcastToUser(9, ThreadEvent{EventID: "swap-evt-2", Type: "swap_update", Payload: "completed"})
	assert.Len(t, client.Send, 2)
}

func TestThreadHub_UnregisterCleanup(t *testing.T) {
	hub := NewThreadHub()
	userID := uint(7)
	threadID := uint(303)

	client := &Client{UserID: userID, Send: make(chan []byte, 10)}
	registerTestClient(hub, client)
	hub.JoinThread(userID, threadID)

	hub.mu.RLock()
	assert.Contains(t, hub.threads[threadID], userID)
	assert.Contains(t, hub.userActiveThreads[userID], threadID)
	hub.mu.RUnlock()

	hub.UnregisterClient(client)

	hub.mu.RLock()
	_, userConnExists := hub.userConns[userID]
	_, threadExists := hub.threads[threadID]
	_, activeExists := hub.userActiveThreads[userID]
	hub.mu.RUnlock()
	assert.False(t, userConnExists)
	assert.False(t, threadExists)
	assert.False(t, activeExists)
	assert.False(t, hub.IsUserOnline(userID))
}

func TestThreadHub_RedisWiring(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	hub := NewThreadHub()
	client := &Client{UserID: 1, Send: make(chan []byte, 10)}
	registerTestClient(hub, client)
	hub.JoinThread(1, 55)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := NewNotifier(rdb)
	assert.NoError(t, hub.StartWiring(ctx, notifier))

	payload, _ := json.Marshal(ThreadEvent{EventID: "evt-55", Payload: "Hi there"})
	assert.NoError(t, notifier.PublishThreadEvent(ctx, 55, string(payload)))

	select {
	case sent := <-client.Send:
		var received ThreadEvent
		assert.NoError(t, json.Unmarshal(sent, &received))
		assert.Equal(t, "message", received.Type)
		assert.Equal(t, uint(55), received.ThreadID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered from redis subscription")
	}
}

// A publisher that broadcasts locally before publishing must not double-
// deliver once its own message comes back over the subscription.
func TestThreadHub_DirectBroadcastAbsorbsRedisEcho(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	hub := NewThreadHub()
	client := &Client{UserID: 1, Send: make(chan []byte, 10)}
	registerTestClient(hub, client)
	hub.JoinThread(1, 77)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := NewNotifier(rdb)
	assert.NoError(t, hub.StartWiring(ctx, notifier))

	event := ThreadEvent{EventID: "evt-77", Type: "message", ThreadID: 77, Payload: "Hi"}
	hub.BroadcastToThread(77, event)

	payload, _ := json.Marshal(event)
	assert.NoError(t, notifier.PublishThreadEvent(ctx, 77, string(payload)))

	select {
	case <-client.Send:
	case <-time.After(2 * time.Second):
		t.Fatal("direct broadcast not delivered")
	}

	// Give the subscriber goroutine time to process the echo.
	time.Sleep(200 * time.Millisecond)
	select {
	case <-client.Send:
		t.Fatal("redis echo of a locally broadcast event was delivered twice")
	default:
	}
}
