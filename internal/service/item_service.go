package service

import (
	"context"
	"strings"

	"rewear/internal/models"
	"rewear/internal/observability"
	"rewear/internal/repository"
	"rewear/internal/validation"
)

// ItemService provides listing catalog business logic, including the
// moderation queue.
type ItemService struct {
	itemRepo repository.ItemRepository
	isAdmin  func(ctx context.Context, userID uint) (bool, error)
}

// CreateItemInput is the input for listing a garment.
type CreateItemInput struct {
	UploaderID  uint
	Title       string
	Description string
	Category    models.ItemCategory
	Type        string
	Size        string
	Condition   models.ItemCondition
	Images      []string
	Tags        []string
	PointsValue int
}

// UpdateItemInput is the input for editing a listing. Empty fields are left
// unchanged; a nil PointsValue keeps the current price.
type UpdateItemInput struct {
	ItemID      uint
	UserID      uint
	Title       string
	Description string
	Size        string
	Images      []string
	Tags        []string
	PointsValue *int
}

// NewItemService returns a new ItemService.
func NewItemService(
	itemRepo repository.ItemRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *ItemService {
	return &ItemService{itemRepo: itemRepo, isAdmin: isAdmin}
}

// CreateItem validates and stores a new listing. Every listing enters the
// moderation queue before becoming visible.
func (s *ItemService) CreateItem(ctx context.Context, in CreateItemInput) (*models.ClothingItem, error) {
	item := &models.ClothingItem{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		Type:        in.Type,
		Size:        in.Size,
		Condition:   in.Condition,
		Images:      in.Images,
		Tags:        in.Tags,
		UploaderID:  in.UploaderID,
		Status:      models.ItemStatusPendingApproval,
		PointsValue: in.PointsValue,
	}

	if err := validation.ValidateItem(item); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns a single listing. Listings that are not yet approved are
// visible only to their uploader and admins.
func (s *ItemService) GetItem(ctx context.Context, itemID, viewerID uint) (*models.ClothingItem, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if item.Status == models.ItemStatusPendingApproval || item.Status == models.ItemStatusRejected {
		if item.UploaderID != viewerID {
			admin, aerr := s.isAdmin(ctx, viewerID)
			if aerr != nil {
				// An unknown viewer (anonymous requests pass 0) is simply
				// not an admin; the listing stays hidden.
				if models.ErrorCode(aerr) != models.CodeNotFound {
					return nil, aerr
				}
				admin = false
			}
			if !admin {
				return nil, models.NewNotFoundError("Item", itemID)
			}
		}
	}

	return item, nil
}

// ListAvailable returns approved listings open for requests, optionally
// narrowed to one category.
func (s *ItemService) ListAvailable(ctx context.Context, category models.ItemCategory, limit, offset int) ([]models.ClothingItem, error) {
	if category != "" {
		if err := validation.ValidateCategory(category); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	return s.itemRepo.ListAvailable(ctx, category, limit, offset)
}

// ListFeatured returns the homepage carousel listings.
func (s *ItemService) ListFeatured(ctx context.Context) ([]models.ClothingItem, error) {
	return s.itemRepo.ListFeatured(ctx)
}

// ListUserItems returns all of a member's own listings regardless of status.
func (s *ItemService) ListUserItems(ctx context.Context, uploaderID uint) ([]models.ClothingItem, error) {
	return s.itemRepo.ListByUploader(ctx, uploaderID)
}

// Search matches available listings by title, description or tags, optionally
// narrowed to one category.
func (s *ItemService) Search(ctx context.Context, query string, category models.ItemCategory, limit, offset int) ([]models.ClothingItem, error) {
	if category != "" {
		if err := validation.ValidateCategory(category); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return s.itemRepo.ListAvailable(ctx, category, limit, offset)
	}
	return s.itemRepo.Search(ctx, query, category, limit, offset)
}

// UpdateItem edits a listing. Only the uploader may edit, and only while the
// listing is pending approval or available.
func (s *ItemService) UpdateItem(ctx context.Context, in UpdateItemInput) (*models.ClothingItem, error) {
	item, err := s.itemRepo.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if item.UploaderID != in.UserID {
		return nil, models.NewForbiddenError("Only the uploader can edit a listing")
	}
	if item.Status != models.ItemStatusPendingApproval && item.Status != models.ItemStatusAvailable {
		return nil, models.NewConflictError("Listing can no longer be edited")
	}

	if in.Title != "" {
		item.Title = strings.TrimSpace(in.Title)
	}
	if in.Description != "" {
		item.Description = strings.TrimSpace(in.Description)
	}
	if in.Size != "" {
		item.Size = in.Size
	}
	if in.Images != nil {
		item.Images = in.Images
	}
	if in.Tags != nil {
		item.Tags = in.Tags
	}
	if in.PointsValue != nil {
		item.PointsValue = *in.PointsValue
	}

	if err := validation.ValidateItem(item); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes a listing. Allowed for the uploader or an admin, and
// only while no approved swap is in flight.
func (s *ItemService) DeleteItem(ctx context.Context, itemID, userID uint) error {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return err
	}

	if item.UploaderID != userID {
		admin, aerr := s.isAdmin(ctx, userID)
		if aerr != nil {
			return aerr
		}
		if !admin {
			return models.NewForbiddenError("Only the uploader or an admin can delete a listing")
		}
	}

	if item.Status == models.ItemStatusInSwap {
		return models.NewConflictError("Listing has an approved swap in flight")
	}

	return s.itemRepo.Delete(ctx, itemID)
}

// ListPending returns the moderation queue, oldest first. Admin only.
func (s *ItemService) ListPending(ctx context.Context, adminID uint, limit, offset int) ([]models.ClothingItem, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return s.itemRepo.ListPending(ctx, limit, offset)
}

// ApproveItem moves a pending listing into the catalog, optionally marking
// it featured. Admin only.
func (s *ItemService) ApproveItem(ctx context.Context, itemID, adminID uint, featured bool) (*models.ClothingItem, error) {
	item, err := s.moderate(ctx, itemID, adminID)
	if err != nil {
		return nil, err
	}

	item.Status = models.ItemStatusAvailable
	item.Featured = featured
	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, err
	}

	observability.RecordModeration("approved")
	return item, nil
}

// RejectItem declines a pending listing. Admin only.
func (s *ItemService) RejectItem(ctx context.Context, itemID, adminID uint) (*models.ClothingItem, error) {
	item, err := s.moderate(ctx, itemID, adminID)
	if err != nil {
		return nil, err
	}

	item.Status = models.ItemStatusRejected
	item.Featured = false
	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, err
	}

	observability.RecordModeration("rejected")
	return item, nil
}

// SetFeatured toggles the carousel flag on an available listing. Admin only.
func (s *ItemService) SetFeatured(ctx context.Context, itemID, adminID uint, featured bool) (*models.ClothingItem, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.ItemStatusAvailable {
		return nil, models.NewConflictError("Only available listings can be featured")
	}

	item.Featured = featured
	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ItemService) moderate(ctx context.Context, itemID, adminID uint) (*models.ClothingItem, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.ItemStatusPendingApproval {
		return nil, models.NewConflictError("Listing is not awaiting moderation")
	}
	return item, nil
}

func (s *ItemService) requireAdmin(ctx context.Context, userID uint) error {
	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewForbiddenError("Admin access required")
	}
	return nil
}
