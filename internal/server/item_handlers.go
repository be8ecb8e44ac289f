package server

import (
	"rewear/internal/models"
	"rewear/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetItems handles GET /api/items?category= (approved listings, newest first)
func (s *Server) GetItems(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	items, err := s.itemService.ListAvailable(c.Context(), models.ItemCategory(c.Query("category")), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// GetFeaturedItems handles GET /api/items/featured (homepage carousel)
func (s *Server) GetFeaturedItems(c *fiber.Ctx) error {
	items, err := s.itemService.ListFeatured(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// SearchItems handles GET /api/items/search?q=&category=
func (s *Server) SearchItems(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	items, err := s.itemService.Search(c.Context(), c.Query("q"), models.ItemCategory(c.Query("category")), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// GetItem handles GET /api/items/:id. Public for approved listings; the
// uploader and admins can also see pending or rejected ones when a valid
// bearer token accompanies the request.
func (s *Server) GetItem(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	viewerID, _ := s.optionalUserID(c)
	item, err := s.itemService.GetItem(c.Context(), itemID, viewerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// GetMyItems handles GET /api/items/me (own listings, any status)
func (s *Server) GetMyItems(c *fiber.Ctx) error {
	items, err := s.itemService.ListUserItems(c.Context(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// CreateItem handles POST /api/items. New listings enter the moderation
// queue and stay invisible until an admin approves them.
func (s *Server) CreateItem(c *fiber.Ctx) error {
	var req struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Category    string   `json:"category"`
		Type        string   `json:"type"`
		Size        string   `json:"size"`
		Condition   string   `json:"condition"`
		Images      []string `json:"images"`
		Tags        []string `json:"tags"`
		PointsValue int      `json:"points_value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	item, err := s.itemService.CreateItem(c.Context(), service.CreateItemInput{
		UploaderID:  currentUserID(c),
		Title:       req.Title,
		Description: req.Description,
		Category:    models.ItemCategory(req.Category),
		Type:        req.Type,
		Size:        req.Size,
		Condition:   models.ItemCondition(req.Condition),
		Images:      req.Images,
		Tags:        req.Tags,
		PointsValue: req.PointsValue,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// UpdateItem handles PUT /api/items/:id
func (s *Server) UpdateItem(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Size        string   `json:"size"`
		Images      []string `json:"images"`
		Tags        []string `json:"tags"`
		PointsValue *int     `json:"points_value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	item, err := s.itemService.UpdateItem(c.Context(), service.UpdateItemInput{
		ItemID:      itemID,
		UserID:      currentUserID(c),
		Title:       req.Title,
		Description: req.Description,
		Size:        req.Size,
		Images:      req.Images,
		Tags:        req.Tags,
		PointsValue: req.PointsValue,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// DeleteItem handles DELETE /api/items/:id
func (s *Server) DeleteItem(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.itemService.DeleteItem(c.Context(), itemID, currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetPendingItems handles GET /api/admin/items/pending (moderation queue)
func (s *Server) GetPendingItems(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	items, err := s.itemService.ListPending(c.Context(), currentUserID(c), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// ApproveItem handles POST /api/admin/items/:id/approve
func (s *Server) ApproveItem(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Featured bool `json:"featured"`
	}
	// Body is optional; approval without a body is not featured.
	_ = c.BodyParser(&req)

	item, err := s.itemService.ApproveItem(c.Context(), itemID, currentUserID(c), req.Featured)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// RejectItem handles POST /api/admin/items/:id/reject
func (s *Server) RejectItem(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	item, err := s.itemService.RejectItem(c.Context(), itemID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// FeatureItem handles POST /api/admin/items/:id/feature
func (s *Server) FeatureItem(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Featured *bool `json:"featured"`
	}
	if err := c.BodyParser(&req); err != nil || req.Featured == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Field 'featured' is required"))
	}

	item, err := s.itemService.SetFeatured(c.Context(), itemID, currentUserID(c), *req.Featured)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}
