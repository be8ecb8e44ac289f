package seed

import (
	"fmt"
	"log"
	"time"

	"rewear/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumItems    int
	ShouldClean bool
}

// DefaultPassword is the login password of every seeded account.
const DefaultPassword = "Password123!"

// Seed populates the database with demo members, listings across every
// moderation state, swap requests, and chat threads.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Seeding database with %d users and %d items...", opts.NumUsers, opts.NumItems)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	f := NewFactory(db)

	users, err := createUsers(db, f, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("Created %d users (password %q)", len(users), DefaultPassword)

	items, err := createItems(db, f, users, opts.NumItems)
	if err != nil {
		return fmt.Errorf("failed to create items: %w", err)
	}
	log.Printf("Created %d items", len(items))

	swaps, err := createSwaps(db, f, users, items)
	if err != nil {
		return fmt.Errorf("failed to create swaps: %w", err)
	}
	log.Printf("Created %d swap requests", len(swaps))

	chats, err := createChats(db, f, swaps)
	if err != nil {
		return fmt.Errorf("failed to create chats: %w", err)
	}
	log.Printf("Created %d chat threads", chats)

	log.Println("Seeding complete")
	return nil
}

func clearData(db *gorm.DB) error {
	// Children before parents.
	tables := []string{"chat_messages", "chats", "swap_requests", "clothing_items", "users"}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

func createUsers(db *gorm.DB, f *Factory, count int) ([]*models.User, error) {
	if count <= 0 {
		count = 12
	}

	// One bcrypt hash shared by all seed accounts keeps seeding fast.
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, count+1)

	admin := &models.User{
		Name:         "ReWear Admin",
		Email:        "admin@rewear.local",
		PasswordHash: string(hash),
		Location:     gofakeit.City(),
		Role:         models.UserRoleAdmin,
		Points:       500,
	}
	if err := db.Create(admin).Error; err != nil {
		return nil, err
	}
	users = append(users, admin)

	for i := 0; i < count; i++ {
		user := f.BuildUser(string(hash))
		if err := db.Create(user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func createItems(db *gorm.DB, f *Factory, users []*models.User, count int) ([]*models.ClothingItem, error) {
	if count <= 0 {
		count = 40
	}

	items := make([]*models.ClothingItem, 0, count)
	for i := 0; i < count; i++ {
		uploader := users[f.rand.Intn(len(users))]

		// Most of the catalog is approved; the rest shows the moderation
		// queue and rejection states in the UI.
		status := models.ItemStatusAvailable
		switch f.rand.Intn(10) {
		case 0, 1:
			status = models.ItemStatusPendingApproval
		case 2:
			status = models.ItemStatusRejected
		}

		item := f.BuildItem(uploader.ID, status, 90)
		if err := db.Create(item).Error; err != nil {
			return nil, err
		}
		item.Uploader = uploader
		items = append(items, item)
	}
	return items, nil
}

func createSwaps(db *gorm.DB, f *Factory, users []*models.User, items []*models.ClothingItem) ([]*models.SwapRequest, error) {
	swaps := make([]*models.SwapRequest, 0)

	for _, item := range items {
		if item.Status != models.ItemStatusAvailable || f.rand.Intn(3) != 0 {
			continue
		}
		requester := f.pick(users, item.UploaderID)
		if requester == nil {
			continue
		}

		swapType := models.SwapTypeDirect
		if f.rand.Intn(2) == 0 && requester.Points >= item.PointsValue {
			swapType = models.SwapTypePoints
		}

		swap := &models.SwapRequest{
			ItemID:      item.ID,
			RequesterID: requester.ID,
			OwnerID:     item.UploaderID,
			Status:      models.SwapStatusPending,
			Type:        swapType,
		}

		// A third of the requests have already been decided.
		switch f.rand.Intn(3) {
		case 0:
			swap.Status = models.SwapStatusApproved
			if err := db.Model(&models.ClothingItem{}).
				Where("id = ?", item.ID).
				Update("status", models.ItemStatusInSwap).Error; err != nil {
				return nil, err
			}
			item.Status = models.ItemStatusInSwap
		case 1:
			if f.rand.Intn(2) == 0 {
				swap.Status = models.SwapStatusRejected
			}
		}

		if err := db.Create(swap).Error; err != nil {
			return nil, err
		}
		swap.Item = item
		swap.Requester = requester
		swaps = append(swaps, swap)
	}
	return swaps, nil
}

func createChats(db *gorm.DB, f *Factory, swaps []*models.SwapRequest) (int, error) {
	created := 0
	for _, swap := range swaps {
		if swap.Status != models.SwapStatusApproved && f.rand.Intn(2) != 0 {
			continue
		}

		chat := &models.Chat{
			ItemID:   swap.ItemID,
			SellerID: swap.OwnerID,
			BuyerID:  swap.RequesterID,
		}
		if err := db.Create(chat).Error; err != nil {
			return created, err
		}
		created++

		if swap.Status == models.SwapStatusApproved {
			notice := &models.ChatMessage{
				ChatID:  chat.ID,
				Message: fmt.Sprintf("Swap approved for %q. Use this chat to arrange the exchange.", swap.Item.Title),
				Type:    models.MessageTypeSystem,
			}
			if err := db.Create(notice).Error; err != nil {
				return created, err
			}
		}

		lines := []string{
			"Hi! Is this still available?",
			"Yes it is. Want to meet this week?",
			gofakeit.Sentence(8),
		}
		for i, line := range lines {
			senderID := swap.RequesterID
			if i%2 == 1 {
				senderID = swap.OwnerID
			}
			msg := &models.ChatMessage{
				ChatID:    chat.ID,
				SenderID:  &senderID,
				Message:   line,
				Type:      models.MessageTypeText,
				CreatedAt: time.Now().Add(-time.Duration(len(lines)-i) * time.Hour),
			}
			if err := db.Create(msg).Error; err != nil {
				return created, err
			}
		}
	}
	return created, nil
}
