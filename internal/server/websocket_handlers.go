package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"rewear/internal/middleware"
	"rewear/internal/notifications"
	"rewear/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// WebSocketThreadHandler handles WebSocket connections for real-time chat
// threads and swap notices. Clients join the thread they are viewing and
// receive every event published for it; swap updates arrive regardless of
// joined threads.
func (s *Server) WebSocketThreadHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		ctx := context.Background()

		// userID is set by the websocket auth middleware
		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			log.Printf("WebSocket: Unauthenticated connection attempt")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			log.Printf("WebSocket: Failed to register user %d: %v", userID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		client.IncomingHandler = func(c *notifications.Client, raw []byte) {
			var incoming struct {
				Type     string `json:"type"`
				ThreadID uint   `json:"thread_id"`
				IsTyping bool   `json:"is_typing"`
				Content  string `json:"content"`
			}
			if err := json.Unmarshal(raw, &incoming); err != nil {
				log.Printf("WebSocket: Invalid message format from user %d", userID)
				return
			}

			switch incoming.Type {
			case "join":
				// Only thread participants may subscribe.
				if _, err := s.chatService.GetChatForUser(ctx, incoming.ThreadID, userID); err != nil {
					return
				}
				s.hub.JoinThread(userID, incoming.ThreadID)

				response := notifications.ThreadEvent{
					Type:     "joined",
					ThreadID: incoming.ThreadID,
					Payload:  fiber.Map{"thread_id": incoming.ThreadID},
				}
				if responseJSON, err := json.Marshal(response); err == nil {
					c.TrySend(responseJSON)
				}

			case "leave":
				s.hub.LeaveThread(userID, incoming.ThreadID)

			case "typing":
				if _, err := s.chatService.GetChatForUser(ctx, incoming.ThreadID, userID); err != nil {
					return
				}

				// Typing indicators are spammy; silently drop the excess.
				if !s.wsRateLimitAllowed(ctx, "typing", userID, 10, 10*time.Second) {
					return
				}

				event := notifications.ThreadEvent{
					EventID:  uuid.NewString(),
					Type:     "typing",
					ThreadID: incoming.ThreadID,
					UserID:   userID,
					Payload:  fiber.Map{"is_typing": incoming.IsTyping},
				}
				s.hub.BroadcastToThread(incoming.ThreadID, event)

				payload, err := json.Marshal(event)
				if err != nil {
					return
				}
				if perr := s.notifier.PublishTypingIndicator(ctx, incoming.ThreadID, string(payload)); perr != nil {
					log.Printf("publish typing indicator error: %v", perr)
				}

			case "message":
				// Same rate limit as the HTTP endpoint (15 per minute).
				if !s.wsRateLimitAllowed(ctx, "send_chat", userID, 15, time.Minute) {
					response := notifications.ThreadEvent{
						Type:     "error",
						ThreadID: incoming.ThreadID,
						Payload:  fiber.Map{"message": "Rate limit exceeded. Please wait a moment."},
					}
					if respJSON, err := json.Marshal(response); err == nil {
						c.TrySend(respJSON)
					}
					return
				}

				message, chat, err := s.chatService.SendMessage(ctx, service.SendMessageInput{
					UserID:  userID,
					ChatID:  incoming.ThreadID,
					Content: incoming.Content,
				})
				if err != nil {
					log.Printf("WebSocket: Failed to create message for user %d: %v", userID, err)
					return
				}

				s.publishThreadEvent(ctx, chat.ID, notifications.ThreadEvent{
					EventID: uuid.NewString(),
					Type:    "message",
					UserID:  userID,
					Payload: message,
				})

			case "read":
				if err := s.chatService.MarkAsRead(ctx, incoming.ThreadID, userID); err != nil {
					log.Printf("mark as read error: %v", err)
					return
				}

				s.publishThreadEvent(ctx, incoming.ThreadID, notifications.ThreadEvent{
					EventID: uuid.NewString(),
					Type:    "read",
					UserID:  userID,
					Payload: fiber.Map{"chat_id": incoming.ThreadID, "user_id": userID},
				})
			}
		}

		welcome := notifications.ThreadEvent{
			Type:    "connected",
			Payload: fiber.Map{"user_id": userID},
		}
		if welcomeJSON, err := json.Marshal(welcome); err == nil {
			client.TrySend(welcomeJSON)
		}

		// Write pump runs in a goroutine; read pump blocks until disconnect.
		go client.WritePump()
		client.ReadPump()
	})
}

// wsRateLimitAllowed checks a per-user rate limit for websocket traffic,
// failing open when the limiter store is unavailable, matching the default
// policy of the HTTP rate limit middleware.
func (s *Server) wsRateLimitAllowed(ctx context.Context, resource string, userID uint, limit int, window time.Duration) bool {
	id := fmt.Sprintf("user:%d", userID)
	allowed, err := middleware.CheckRateLimit(ctx, s.redis, resource, id, limit, window)
	if err != nil {
		return true
	}
	return allowed
}
