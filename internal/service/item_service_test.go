package service

import (
	"context"
	"testing"

	"rewear/internal/models"
	"rewear/internal/repository"

	"github.com/stretchr/testify/assert"
)

func alwaysAdmin(context.Context, uint) (bool, error) { return true, nil }
func neverAdmin(context.Context, uint) (bool, error)  { return false, nil }

func validCreateItemInput(uploaderID uint) CreateItemInput {
	return CreateItemInput{
		UploaderID:  uploaderID,
		Title:       "Vintage Denim Jacket",
		Description: "Classic 90s denim, barely worn.",
		Category:    models.ItemCategoryWomen,
		Type:        "women",
		Size:        "M",
		Condition:   models.ItemConditionGentlyUsed,
		Images:      []string{"https://img.example.com/jacket.jpg"},
		Tags:        []string{"denim", "vintage"},
		PointsValue: 45,
	}
}

func TestItemService_CreateItem_Validation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewItemService(repository.NewItemRepository(db), neverAdmin)

	t.Run("Valid listing enters moderation queue", func(t *testing.T) {
		item, err := svc.CreateItem(context.Background(), validCreateItemInput(1))
		assert.NoError(t, err)
		assert.Equal(t, models.ItemStatusPendingApproval, item.Status)
		assert.Equal(t, 45, item.PointsValue)
	})

	t.Run("Missing images", func(t *testing.T) {
		in := validCreateItemInput(1)
		in.Images = nil
		_, err := svc.CreateItem(context.Background(), in)
		assert.Error(t, err)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})

	t.Run("Points value out of range", func(t *testing.T) {
		in := validCreateItemInput(1)
		in.PointsValue = 1001
		_, err := svc.CreateItem(context.Background(), in)
		assert.Error(t, err)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})

	t.Run("Unknown category", func(t *testing.T) {
		in := validCreateItemInput(1)
		in.Category = models.ItemCategory("electronics")
		_, err := svc.CreateItem(context.Background(), in)
		assert.Error(t, err)
	})
}

func TestItemService_CreateItem_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	svc := NewItemService(repository.NewItemRepository(db), neverAdmin)

	created, err := svc.CreateItem(context.Background(), validCreateItemInput(1))
	assert.NoError(t, err)

	fetched, err := svc.GetItem(context.Background(), created.ID, 1)
	assert.NoError(t, err)
	assert.Equal(t, 45, fetched.PointsValue)
	assert.Equal(t, models.ItemConditionGentlyUsed, fetched.Condition)
	assert.Equal(t, models.ItemCategoryWomen, fetched.Category)
	assert.Equal(t, models.StringList{"denim", "vintage"}, fetched.Tags)
}

func TestItemService_GetItem_AnonymousViewer(t *testing.T) {
	db := setupTestDB(t)
	svc := NewItemService(repository.NewItemRepository(db), func(_ context.Context, userID uint) (bool, error) {
		return false, models.NewNotFoundError("User", userID)
	})

	item, err := svc.CreateItem(context.Background(), validCreateItemInput(1))
	assert.NoError(t, err)

	// Anonymous requests carry viewer ID 0, which the directory cannot
	// resolve. The listing stays hidden instead of leaking the lookup error.
	_, err = svc.GetItem(context.Background(), item.ID, 0)
	assert.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	assert.Contains(t, err.Error(), "Item")
	assert.NotContains(t, err.Error(), "User")
}

func TestItemService_Moderation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewItemService(repository.NewItemRepository(db), func(_ context.Context, userID uint) (bool, error) {
		return userID == 99, nil
	})

	item, err := svc.CreateItem(context.Background(), validCreateItemInput(1))
	assert.NoError(t, err)

	t.Run("Pending listings hidden from other members", func(t *testing.T) {
		_, err := svc.GetItem(context.Background(), item.ID, 2)
		assert.Error(t, err)
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	})

	t.Run("Non-admin cannot moderate", func(t *testing.T) {
		_, err := svc.ApproveItem(context.Background(), item.ID, 2, false)
		assert.Error(t, err)
		assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
	})

	t.Run("Admin approves into catalog", func(t *testing.T) {
		queue, err := svc.ListPending(context.Background(), 99, 50, 0)
		assert.NoError(t, err)
		assert.Len(t, queue, 1)

		approved, err := svc.ApproveItem(context.Background(), item.ID, 99, true)
		assert.NoError(t, err)
		assert.Equal(t, models.ItemStatusAvailable, approved.Status)
		assert.True(t, approved.Featured)

		available, err := svc.ListAvailable(context.Background(), "", 50, 0)
		assert.NoError(t, err)
		assert.Len(t, available, 1)
	})

	t.Run("Approving twice conflicts", func(t *testing.T) {
		_, err := svc.ApproveItem(context.Background(), item.ID, 99, false)
		assert.Error(t, err)
		assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
	})

	t.Run("Reject a fresh listing", func(t *testing.T) {
		other, err := svc.CreateItem(context.Background(), validCreateItemInput(1))
		assert.NoError(t, err)

		rejected, err := svc.RejectItem(context.Background(), other.ID, 99)
		assert.NoError(t, err)
		assert.Equal(t, models.ItemStatusRejected, rejected.Status)
	})
}

func TestItemService_UpdateItem(t *testing.T) {
	db := setupTestDB(t)
	svc := NewItemService(repository.NewItemRepository(db), neverAdmin)

	item, err := svc.CreateItem(context.Background(), validCreateItemInput(1))
	assert.NoError(t, err)

	t.Run("Uploader edits pending listing", func(t *testing.T) {
		points := 60
		updated, err := svc.UpdateItem(context.Background(), UpdateItemInput{
			ItemID:      item.ID,
			UserID:      1,
			Title:       "Vintage Denim Jacket (L)",
			PointsValue: &points,
		})
		assert.NoError(t, err)
		assert.Equal(t, "Vintage Denim Jacket (L)", updated.Title)
		assert.Equal(t, 60, updated.PointsValue)
	})

	t.Run("Stranger cannot edit", func(t *testing.T) {
		_, err := svc.UpdateItem(context.Background(), UpdateItemInput{ItemID: item.ID, UserID: 2, Title: "Hijacked"})
		assert.Error(t, err)
		assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
	})

	t.Run("Edit cannot break validation", func(t *testing.T) {
		bad := 0
		_, err := svc.UpdateItem(context.Background(), UpdateItemInput{ItemID: item.ID, UserID: 1, PointsValue: &bad})
		assert.Error(t, err)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})
}

func TestItemService_DeleteItem(t *testing.T) {
	db := setupTestDB(t)
	svc := NewItemService(repository.NewItemRepository(db), neverAdmin)

	item, err := svc.CreateItem(context.Background(), validCreateItemInput(1))
	assert.NoError(t, err)

	t.Run("Stranger cannot delete", func(t *testing.T) {
		err := svc.DeleteItem(context.Background(), item.ID, 2)
		assert.Error(t, err)
		assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
	})

	t.Run("Delete blocked while swap in flight", func(t *testing.T) {
		db.Model(&models.ClothingItem{}).Where("id = ?", item.ID).Update("status", models.ItemStatusInSwap)
		err := svc.DeleteItem(context.Background(), item.ID, 1)
		assert.Error(t, err)
		assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
		db.Model(&models.ClothingItem{}).Where("id = ?", item.ID).Update("status", models.ItemStatusAvailable)
	})

	t.Run("Uploader deletes", func(t *testing.T) {
		assert.NoError(t, svc.DeleteItem(context.Background(), item.ID, 1))
		_, err := svc.GetItem(context.Background(), item.ID, 1)
		assert.Error(t, err)
	})
}

func TestItemService_Search(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewItemRepository(db)
	svc := NewItemService(repo, alwaysAdmin)

	jacket, _ := svc.CreateItem(context.Background(), validCreateItemInput(1))
	scarfIn := validCreateItemInput(1)
	scarfIn.Title = "Wool Scarf"
	scarfIn.Description = "Hand-knitted, warm."
	scarfIn.Category = models.ItemCategoryAccessories
	scarfIn.Tags = []string{"winter", "wool"}
	scarf, _ := svc.CreateItem(context.Background(), scarfIn)

	for _, id := range []uint{jacket.ID, scarf.ID} {
		_, err := svc.ApproveItem(context.Background(), id, 99, false)
		assert.NoError(t, err)
	}

	t.Run("Title match", func(t *testing.T) {
		results, err := svc.Search(context.Background(), "denim", "", 50, 0)
		assert.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, jacket.ID, results[0].ID)
	})

	t.Run("Tag match", func(t *testing.T) {
		results, err := svc.Search(context.Background(), "winter", "", 50, 0)
		assert.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, scarf.ID, results[0].ID)
	})

	t.Run("Blank query lists available", func(t *testing.T) {
		results, err := svc.Search(context.Background(), "  ", "", 50, 0)
		assert.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("Category narrows results", func(t *testing.T) {
		results, err := svc.ListAvailable(context.Background(), models.ItemCategoryAccessories, 50, 0)
		assert.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, scarf.ID, results[0].ID)

		results, err = svc.Search(context.Background(), "wool", models.ItemCategoryWomen, 50, 0)
		assert.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Unknown category rejected", func(t *testing.T) {
		_, err := svc.ListAvailable(context.Background(), "hats", 50, 0)
		assert.Error(t, err)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})
}
