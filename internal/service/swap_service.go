package service

import (
	"context"
	"fmt"
	"time"

	"rewear/internal/cache"
	"rewear/internal/models"
	"rewear/internal/observability"
	"rewear/internal/repository"

	"gorm.io/gorm"
)

// ChatAnnouncer posts system notices into per-listing threads. Satisfied by
// ChatService; swap tests stub it.
type ChatAnnouncer interface {
	AnnounceToThread(ctx context.Context, itemID, sellerID, buyerID uint, content string) (*models.Chat, error)
}

// SwapService provides swap ledger business logic. State-changing operations
// that touch listings or wallets run inside a single database transaction.
type SwapService struct {
	swapRepo repository.SwapRepository
	itemRepo repository.ItemRepository
	userRepo repository.UserRepository
	db       *gorm.DB
	chats    ChatAnnouncer
}

// CreateSwapInput is the input for requesting a swap.
type CreateSwapInput struct {
	RequesterID uint
	ItemID      uint
	Type        models.SwapType
}

// NewSwapService returns a new SwapService.
func NewSwapService(
	swapRepo repository.SwapRepository,
	itemRepo repository.ItemRepository,
	userRepo repository.UserRepository,
	db *gorm.DB,
	chats ChatAnnouncer,
) *SwapService {
	return &SwapService{
		swapRepo: swapRepo,
		itemRepo: itemRepo,
		userRepo: userRepo,
		db:       db,
		chats:    chats,
	}
}

// CreateSwapRequest opens a pending request against an available listing.
// A member holds at most one live (pending or approved) request per listing,
// and cannot request their own.
func (s *SwapService) CreateSwapRequest(ctx context.Context, in CreateSwapInput) (*models.SwapRequest, error) {
	if in.Type != models.SwapTypeDirect && in.Type != models.SwapTypePoints {
		return nil, models.NewValidationError("Invalid swap type")
	}

	item, err := s.itemRepo.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.ItemStatusAvailable {
		return nil, models.NewConflictError("Listing is not available for swapping")
	}
	if item.UploaderID == in.RequesterID {
		return nil, models.NewValidationError("Cannot request your own listing")
	}

	active, err := s.swapRepo.HasActiveRequest(ctx, in.ItemID, in.RequesterID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, models.NewConflictError("You already have an active request for this listing")
	}

	if in.Type == models.SwapTypePoints {
		requester, err := s.userRepo.GetByID(ctx, in.RequesterID)
		if err != nil {
			return nil, err
		}
		if requester.Points < item.PointsValue {
			return nil, models.NewValidationError("Insufficient points for this listing")
		}
	}

	swap := &models.SwapRequest{
		ItemID:      in.ItemID,
		RequesterID: in.RequesterID,
		OwnerID:     item.UploaderID,
		Status:      models.SwapStatusPending,
		Type:        in.Type,
	}
	if err := s.swapRepo.Create(ctx, swap); err != nil {
		return nil, err
	}

	observability.RecordSwapTransition("none", string(models.SwapStatusPending))
	return swap, nil
}

// GetSwap returns a request visible to one of its parties.
func (s *SwapService) GetSwap(ctx context.Context, swapID, userID uint) (*models.SwapRequest, error) {
	swap, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if swap.RequesterID != userID && swap.OwnerID != userID {
		return nil, models.NewForbiddenError("You are not a party to this swap")
	}
	return swap, nil
}

// GetOutgoing returns the member's own requests, newest first.
func (s *SwapService) GetOutgoing(ctx context.Context, userID uint) ([]models.SwapRequest, error) {
	return s.swapRepo.ListByRequester(ctx, userID)
}

// GetIncoming returns requests against the member's listings, newest first.
func (s *SwapService) GetIncoming(ctx context.Context, userID uint) ([]models.SwapRequest, error) {
	return s.swapRepo.ListByOwner(ctx, userID)
}

// GetAllForUser returns every swap the member is a party to, newest first.
func (s *SwapService) GetAllForUser(ctx context.Context, userID uint) ([]models.SwapRequest, error) {
	return s.swapRepo.ListForUser(ctx, userID)
}

// GetSwapsForItem returns all requests against one listing. Only the listing
// owner may see them.
func (s *SwapService) GetSwapsForItem(ctx context.Context, itemID, userID uint) ([]models.SwapRequest, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.UploaderID != userID {
		return nil, models.NewForbiddenError("Only the listing owner can view its swap requests")
	}
	return s.swapRepo.ListForItem(ctx, itemID)
}

// HasUserRequestedItem reports whether the member holds a live request for
// the listing.
func (s *SwapService) HasUserRequestedItem(ctx context.Context, itemID, userID uint) (bool, error) {
	return s.swapRepo.HasActiveRequest(ctx, itemID, userID)
}

// ApproveSwap accepts a pending request. The listing moves to in-swap,
// competing pending requests are rejected, and a meetup thread opens between
// the parties with a system notice.
func (s *SwapService) ApproveSwap(ctx context.Context, swapID, ownerID uint) (*models.SwapRequest, error) {
	swap, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if swap.OwnerID != ownerID {
		return nil, models.NewForbiddenError("Only the listing owner can approve a swap")
	}
	if swap.Status != models.SwapStatusPending {
		return nil, models.NewConflictError("Swap request is no longer pending")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.SwapRequest{}).
			Where("id = ? AND status = ?", swapID, models.SwapStatusPending).
			Update("status", models.SwapStatusApproved)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewConflictError("Swap request is no longer pending")
		}

		if err := tx.Model(&models.ClothingItem{}).
			Where("id = ?", swap.ItemID).
			Update("status", models.ItemStatusInSwap).Error; err != nil {
			return models.NewInternalError(err)
		}

		// Competitors lose once one request is accepted.
		if err := tx.Model(&models.SwapRequest{}).
			Where("item_id = ? AND id <> ? AND status = ?", swap.ItemID, swapID, models.SwapStatusPending).
			Update("status", models.SwapStatusRejected).Error; err != nil {
			return models.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateItem(ctx, swap.ItemID)
	observability.RecordSwapTransition(string(models.SwapStatusPending), string(models.SwapStatusApproved))

	swap.Status = models.SwapStatusApproved

	// Best-effort: the swap stands even if the thread cannot be opened.
	itemTitle := ""
	if swap.Item != nil {
		itemTitle = swap.Item.Title
	}
	_, _ = s.chats.AnnounceToThread(ctx, swap.ItemID, swap.OwnerID, swap.RequesterID,
		fmt.Sprintf("Swap approved for %q. Use this chat to arrange the exchange.", itemTitle))

	return swap, nil
}

// RejectSwap declines a pending request. The listing stays available.
func (s *SwapService) RejectSwap(ctx context.Context, swapID, ownerID uint) (*models.SwapRequest, error) {
	swap, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if swap.OwnerID != ownerID {
		return nil, models.NewForbiddenError("Only the listing owner can reject a swap")
	}
	if swap.Status != models.SwapStatusPending {
		return nil, models.NewConflictError("Swap request is no longer pending")
	}

	swap.Status = models.SwapStatusRejected
	if err := s.swapRepo.Update(ctx, swap); err != nil {
		return nil, err
	}

	observability.RecordSwapTransition(string(models.SwapStatusPending), string(models.SwapStatusRejected))
	return swap, nil
}

// CompleteSwap settles an approved exchange. In one transaction: the request
// becomes completed, the listing becomes redeemed, and for points redemptions
// the requester's wallet is debited and the owner's credited by the listing's
// points value. A debit that would overdraw rolls the whole settlement back.
// Completing a request that is not approved returns a conflict, so retries
// of an already settled swap are harmless.
func (s *SwapService) CompleteSwap(ctx context.Context, swapID, actorID uint) (*models.SwapRequest, error) {
	swap, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if swap.RequesterID != actorID && swap.OwnerID != actorID {
		return nil, models.NewForbiddenError("You are not a party to this swap")
	}
	if swap.Status != models.SwapStatusApproved {
		return nil, models.NewConflictError("Only approved swaps can be completed")
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.SwapRequest{}).
			Where("id = ? AND status = ?", swapID, models.SwapStatusApproved).
			Updates(map[string]interface{}{
				"status":       models.SwapStatusCompleted,
				"completed_at": now,
			})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewConflictError("Only approved swaps can be completed")
		}

		if err := tx.Model(&models.ClothingItem{}).
			Where("id = ?", swap.ItemID).
			Update("status", models.ItemStatusRedeemed).Error; err != nil {
			return models.NewInternalError(err)
		}

		if swap.Type == models.SwapTypePoints {
			// Settling without the listing's price would move zero points;
			// abort instead of granting a free redemption.
			if swap.Item == nil {
				return models.NewInternalError(fmt.Errorf("listing %d missing while settling swap %d", swap.ItemID, swapID))
			}
			points := swap.Item.PointsValue
			if err := repository.AdjustUserPoints(ctx, tx, swap.RequesterID, -points); err != nil {
				return err
			}
			if err := repository.AdjustUserPoints(ctx, tx, swap.OwnerID, points); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateItem(ctx, swap.ItemID)
	observability.RecordSwapTransition(string(models.SwapStatusApproved), string(models.SwapStatusCompleted))

	swap.Status = models.SwapStatusCompleted
	swap.CompletedAt = &now

	_, _ = s.chats.AnnounceToThread(ctx, swap.ItemID, swap.OwnerID, swap.RequesterID,
		"Swap completed. Thanks for keeping clothes in circulation!")

	return swap, nil
}
