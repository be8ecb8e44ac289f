package notifications

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes realtime events into Redis channels so every server
// instance can fan them out to its own websocket clients. A nil Redis client
// turns publishing into a no-op for single-instance deployments.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishThreadEvent sends a chat event to a thread's channel.
func (n *Notifier) PublishThreadEvent(ctx context.Context, threadID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, ThreadChannel(threadID), payload).Err()
}

// PublishTypingIndicator sends a typing notice to a thread's typing channel.
func (n *Notifier) PublishTypingIndicator(ctx context.Context, threadID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	channel := fmt.Sprintf("typing:thread:%d", threadID)
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// PublishSwapEvent sends a swap lifecycle notice to a member's channel.
func (n *Notifier) PublishSwapEvent(ctx context.Context, userID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, SwapUserChannel(userID), payload).Err()
}

// StartThreadSubscriber subscribes to thread and swap patterns and calls
// onMessage for each incoming message. Subscribes to: chat:thread:*,
// typing:thread:*, swaps:user:*
func (n *Notifier) StartThreadSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "chat:thread:*", "typing:thread:*", "swaps:user:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in ThreadSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// ThreadChannel derives the Redis channel name for a chat thread.
func ThreadChannel(threadID uint) string {
	return "chat:thread:" + strconv.FormatUint(uint64(threadID), 10)
}

// SwapUserChannel derives the Redis channel name for a member's swap events.
func SwapUserChannel(userID uint) string {
	return "swaps:user:" + strconv.FormatUint(uint64(userID), 10)
}
