package server

import (
	"context"
	"encoding/json"
	"log"

	"rewear/internal/models"
	"rewear/internal/notifications"
	"rewear/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CreateSwap handles POST /api/swaps
func (s *Server) CreateSwap(c *fiber.Ctx) error {
	var req struct {
		ItemID uint   `json:"item_id"`
		Type   string `json:"type"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	swap, err := s.swapService.CreateSwapRequest(c.Context(), service.CreateSwapInput{
		RequesterID: currentUserID(c),
		ItemID:      req.ItemID,
		Type:        models.SwapType(req.Type),
	})
	if err != nil {
		return respondError(c, err)
	}

	// Let the listing owner know a request landed.
	s.publishSwapEvent(c.Context(), swap.OwnerID, swap)

	return c.Status(fiber.StatusCreated).JSON(swap)
}

// GetSwap handles GET /api/swaps/:id
func (s *Server) GetSwap(c *fiber.Ctx) error {
	swapID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	swap, err := s.swapService.GetSwap(c.Context(), swapID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(swap)
}

// GetOutgoingSwaps handles GET /api/swaps/outgoing
func (s *Server) GetOutgoingSwaps(c *fiber.Ctx) error {
	swaps, err := s.swapService.GetOutgoing(c.Context(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(swaps)
}

// GetIncomingSwaps handles GET /api/swaps/incoming
func (s *Server) GetIncomingSwaps(c *fiber.Ctx) error {
	swaps, err := s.swapService.GetIncoming(c.Context(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(swaps)
}

// GetAllSwaps handles GET /api/swaps (every swap the member is a party to)
func (s *Server) GetAllSwaps(c *fiber.Ctx) error {
	swaps, err := s.swapService.GetAllForUser(c.Context(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(swaps)
}

// GetItemSwaps handles GET /api/items/:id/swaps (owner only)
func (s *Server) GetItemSwaps(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	swaps, err := s.swapService.GetSwapsForItem(c.Context(), itemID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(swaps)
}

// HasRequestedItem handles GET /api/items/:id/requested
func (s *Server) HasRequestedItem(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	requested, err := s.swapService.HasUserRequestedItem(c.Context(), itemID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"requested": requested})
}

// ApproveSwap handles POST /api/swaps/:id/approve
func (s *Server) ApproveSwap(c *fiber.Ctx) error {
	swapID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	swap, err := s.swapService.ApproveSwap(c.Context(), swapID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	s.publishSwapEvent(c.Context(), swap.RequesterID, swap)

	return c.JSON(swap)
}

// RejectSwap handles POST /api/swaps/:id/reject
func (s *Server) RejectSwap(c *fiber.Ctx) error {
	swapID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	swap, err := s.swapService.RejectSwap(c.Context(), swapID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	s.publishSwapEvent(c.Context(), swap.RequesterID, swap)

	return c.JSON(swap)
}

// CompleteSwap handles POST /api/swaps/:id/complete
func (s *Server) CompleteSwap(c *fiber.Ctx) error {
	swapID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	actorID := currentUserID(c)
	swap, err := s.swapService.CompleteSwap(c.Context(), swapID, actorID)
	if err != nil {
		return respondError(c, err)
	}

	// Both parties care about settlement; skip the actor's own echo.
	if swap.RequesterID != actorID {
		s.publishSwapEvent(c.Context(), swap.RequesterID, swap)
	}
	if swap.OwnerID != actorID {
		s.publishSwapEvent(c.Context(), swap.OwnerID, swap)
	}

	return c.JSON(swap)
}

// publishSwapEvent pushes a swap lifecycle notice to one member's devices on
// this instance, then via Redis to the rest. The member's event ID window in
// the hub drops our own Redis echo. Best-effort: the state change already
// committed.
func (s *Server) publishSwapEvent(ctx context.Context, userID uint, swap *models.SwapRequest) {
	event := notifications.ThreadEvent{
		EventID: uuid.NewString(),
		Type:    "swap_update",
		UserID:  userID,
		Payload: swap,
	}
	s.hub.BroadcastToUser(userID, event)

	if s.notifier == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshal swap event error: %v", err)
		return
	}
	if perr := s.notifier.PublishSwapEvent(ctx, userID, string(payload)); perr != nil {
		log.Printf("publish swap event error: %v", perr)
	}
}
