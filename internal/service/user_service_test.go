package service

import (
	"context"
	"testing"

	"rewear/internal/models"
	"rewear/internal/repository"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type userRepoStub struct {
	getByIDFn      func(context.Context, uint) (*models.User, error)
	getByEmailFn   func(context.Context, string) (*models.User, error)
	createFn       func(context.Context, *models.User) error
	updateFn       func(context.Context, *models.User) error
	listFn         func(context.Context, int, int) ([]models.User, error)
	adjustPointsFn func(context.Context, uint, int) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *userRepoStub) AdjustPoints(ctx context.Context, userID uint, delta int) error {
	return s.adjustPointsFn(ctx, userID, delta)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:      func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn:   func(context.Context, string) (*models.User, error) { return nil, nil },
		createFn:       func(context.Context, *models.User) error { return nil },
		updateFn:       func(context.Context, *models.User) error { return nil },
		listFn:         func(context.Context, int, int) ([]models.User, error) { return nil, nil },
		adjustPointsFn: func(context.Context, uint, int) error { return nil },
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.ClothingItem{},
		&models.SwapRequest{},
		&models.Chat{},
		&models.ChatMessage{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestUserService_UpdateProfile(t *testing.T) {
	repo := noopUserRepo()
	stored := &models.User{ID: 1, Name: "Old Name", Location: "Oldtown"}
	repo.getByIDFn = func(context.Context, uint) (*models.User, error) { return stored, nil }

	svc := NewUserService(repo)

	t.Run("Updates provided fields", func(t *testing.T) {
		user, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
			UserID:                1,
			Name:                  "New Name",
			PreferredMeetingPlace: "Central Library",
		})
		assert.NoError(t, err)
		assert.Equal(t, "New Name", user.Name)
		assert.Equal(t, "Oldtown", user.Location)
		assert.Equal(t, "Central Library", user.PreferredMeetingPlace)
	})

	t.Run("Rejects oversized name", func(t *testing.T) {
		long := make([]byte, 61)
		for i := range long {
			long[i] = 'a'
		}
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: 1, Name: string(long)})
		assert.Error(t, err)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})
}

func TestUserService_IsAdmin(t *testing.T) {
	repo := noopUserRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		if id == 7 {
			return &models.User{ID: 7, Role: models.UserRoleAdmin}, nil
		}
		return &models.User{ID: id, Role: models.UserRoleMember}, nil
	}

	svc := NewUserService(repo)

	admin, err := svc.IsAdmin(context.Background(), 7)
	assert.NoError(t, err)
	assert.True(t, admin)

	admin, err = svc.IsAdmin(context.Background(), 3)
	assert.NoError(t, err)
	assert.False(t, admin)
}

func TestUserService_AdjustPoints(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewUserRepository(db)
	svc := NewUserService(repo)

	user := &models.User{Name: "Wallet", Email: "wallet@example.com", Points: 50}
	db.Create(user)

	t.Run("Zero delta rejected", func(t *testing.T) {
		_, err := svc.AdjustPoints(context.Background(), user.ID, 0)
		assert.Error(t, err)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})

	t.Run("Credit and debit", func(t *testing.T) {
		updated, err := svc.AdjustPoints(context.Background(), user.ID, 25)
		assert.NoError(t, err)
		assert.Equal(t, 75, updated.Points)

		updated, err = svc.AdjustPoints(context.Background(), user.ID, -75)
		assert.NoError(t, err)
		assert.Equal(t, 0, updated.Points)
	})

	t.Run("Overdraw rejected", func(t *testing.T) {
		_, err := svc.AdjustPoints(context.Background(), user.ID, -1)
		assert.Error(t, err)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})
}

func TestUserService_SetRole(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewUserRepository(db)
	svc := NewUserService(repo)

	user := &models.User{Name: "Member", Email: "member@example.com"}
	db.Create(user)

	promoted, err := svc.SetRole(context.Background(), user.ID, models.UserRoleAdmin)
	assert.NoError(t, err)
	assert.True(t, promoted.IsAdmin())

	_, err = svc.SetRole(context.Background(), user.ID, models.UserRole("superuser"))
	assert.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}
