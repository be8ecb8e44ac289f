package repository

import (
	"context"
	"errors"

	"rewear/internal/models"

	"gorm.io/gorm"
)

// SwapRepository defines persistence operations for swap requests.
type SwapRepository interface {
	Create(ctx context.Context, swap *models.SwapRequest) error
	GetByID(ctx context.Context, id uint) (*models.SwapRequest, error)
	Update(ctx context.Context, swap *models.SwapRequest) error
	ListByRequester(ctx context.Context, requesterID uint) ([]models.SwapRequest, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]models.SwapRequest, error)
	ListForItem(ctx context.Context, itemID uint) ([]models.SwapRequest, error)
	ListForUser(ctx context.Context, userID uint) ([]models.SwapRequest, error)
	HasActiveRequest(ctx context.Context, itemID, requesterID uint) (bool, error)
}

type swapRepository struct {
	db *gorm.DB
}

// NewSwapRepository returns a new SwapRepository implementation.
func NewSwapRepository(db *gorm.DB) SwapRepository {
	return &swapRepository{db: db}
}

func (r *swapRepository) Create(ctx context.Context, swap *models.SwapRequest) error {
	if err := r.db.WithContext(ctx).Create(swap).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *swapRepository) GetByID(ctx context.Context, id uint) (*models.SwapRequest, error) {
	var swap models.SwapRequest
	if err := r.db.WithContext(ctx).
		Preload("Item").
		Preload("Requester").
		Preload("Owner").
		First(&swap, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Swap request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &swap, nil
}

func (r *swapRepository) Update(ctx context.Context, swap *models.SwapRequest) error {
	if err := r.db.WithContext(ctx).Save(swap).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *swapRepository) ListByRequester(ctx context.Context, requesterID uint) ([]models.SwapRequest, error) {
	var swaps []models.SwapRequest
	if err := r.db.WithContext(ctx).
		Preload("Item").
		Preload("Owner").
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&swaps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return swaps, nil
}

func (r *swapRepository) ListByOwner(ctx context.Context, ownerID uint) ([]models.SwapRequest, error) {
	var swaps []models.SwapRequest
	if err := r.db.WithContext(ctx).
		Preload("Item").
		Preload("Requester").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&swaps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return swaps, nil
}

func (r *swapRepository) ListForItem(ctx context.Context, itemID uint) ([]models.SwapRequest, error) {
	var swaps []models.SwapRequest
	if err := r.db.WithContext(ctx).
		Preload("Requester").
		Where("item_id = ?", itemID).
		Order("created_at DESC").
		Find(&swaps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return swaps, nil
}

// ListForUser returns every swap touching the user, as requester or owner.
func (r *swapRepository) ListForUser(ctx context.Context, userID uint) ([]models.SwapRequest, error) {
	var swaps []models.SwapRequest
	if err := r.db.WithContext(ctx).
		Preload("Item").
		Preload("Requester").
		Preload("Owner").
		Where("requester_id = ? OR owner_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&swaps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return swaps, nil
}

// HasActiveRequest reports whether the requester already has a pending or
// approved request for the item. Used to enforce one live request per
// (item, requester) pair.
func (r *swapRepository) HasActiveRequest(ctx context.Context, itemID, requesterID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.SwapRequest{}).
		Where("item_id = ? AND requester_id = ? AND status IN ?",
			itemID, requesterID,
			[]models.SwapStatus{models.SwapStatusPending, models.SwapStatusApproved}).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
