package repository

import (
	"context"
	"errors"

	"rewear/internal/cache"
	"rewear/internal/models"

	"gorm.io/gorm"
)

// FeaturedItemsLimit caps the homepage carousel.
const FeaturedItemsLimit = 6

// ItemRepository defines persistence operations for clothing listings.
type ItemRepository interface {
	GetByID(ctx context.Context, id uint) (*models.ClothingItem, error)
	Create(ctx context.Context, item *models.ClothingItem) error
	Update(ctx context.Context, item *models.ClothingItem) error
	Delete(ctx context.Context, id uint) error
	ListAvailable(ctx context.Context, category models.ItemCategory, limit, offset int) ([]models.ClothingItem, error)
	ListFeatured(ctx context.Context) ([]models.ClothingItem, error)
	ListPending(ctx context.Context, limit, offset int) ([]models.ClothingItem, error)
	ListByUploader(ctx context.Context, uploaderID uint) ([]models.ClothingItem, error)
	Search(ctx context.Context, query string, category models.ItemCategory, limit, offset int) ([]models.ClothingItem, error)
}

type itemRepository struct {
	db *gorm.DB
}

// NewItemRepository returns a new ItemRepository implementation.
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) GetByID(ctx context.Context, id uint) (*models.ClothingItem, error) {
	var item models.ClothingItem
	if err := r.db.WithContext(ctx).Preload("Uploader").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Item", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &item, nil
}

func (r *itemRepository) Create(ctx context.Context, item *models.ClothingItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *itemRepository) Update(ctx context.Context, item *models.ClothingItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateItem(ctx, item.ID)
	return nil
}

func (r *itemRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.ClothingItem{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateItem(ctx, id)
	return nil
}

func (r *itemRepository) ListAvailable(ctx context.Context, category models.ItemCategory, limit, offset int) ([]models.ClothingItem, error) {
	var items []models.ClothingItem
	q := r.db.WithContext(ctx).
		Preload("Uploader").
		Where("status = ?", models.ItemStatusAvailable)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}

func (r *itemRepository) ListFeatured(ctx context.Context) ([]models.ClothingItem, error) {
	var items []models.ClothingItem

	err := cache.Aside(ctx, cache.FeaturedItemsKey, &items, cache.FeaturedItemsTTL, func() error {
		if err := r.db.WithContext(ctx).
			Preload("Uploader").
			Where("status = ? AND featured = ?", models.ItemStatusAvailable, true).
			Order("created_at DESC").
			Limit(FeaturedItemsLimit).
			Find(&items).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepository) ListPending(ctx context.Context, limit, offset int) ([]models.ClothingItem, error) {
	var items []models.ClothingItem
	if err := r.db.WithContext(ctx).
		Preload("Uploader").
		Where("status = ?", models.ItemStatusPendingApproval).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}

func (r *itemRepository) ListByUploader(ctx context.Context, uploaderID uint) ([]models.ClothingItem, error) {
	var items []models.ClothingItem
	if err := r.db.WithContext(ctx).
		Where("uploader_id = ?", uploaderID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}

// Search matches available listings whose title, description or tags contain
// the query, case-insensitively. Tags are stored as a JSON string column so a
// substring match over the serialized form is sufficient.
func (r *itemRepository) Search(ctx context.Context, query string, category models.ItemCategory, limit, offset int) ([]models.ClothingItem, error) {
	var items []models.ClothingItem
	pattern := "%" + query + "%"
	q := r.db.WithContext(ctx).
		Preload("Uploader").
		Where("status = ?", models.ItemStatusAvailable).
		Where(
			r.db.Where("LOWER(title) LIKE LOWER(?)", pattern).
				Or("LOWER(description) LIKE LOWER(?)", pattern).
				Or("LOWER(tags) LIKE LOWER(?)", pattern),
		)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}
