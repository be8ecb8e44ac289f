// Package seed provides helpers to create demo data for development and
// testing. Never run against a production database.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"rewear/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	rand *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:   db,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var (
	categories = []models.ItemCategory{
		models.ItemCategoryWomen, models.ItemCategoryMen, models.ItemCategoryKids,
		models.ItemCategoryAccessories, models.ItemCategoryShoes,
	}
	conditions = []models.ItemCondition{
		models.ItemConditionNew, models.ItemConditionLikeNew,
		models.ItemConditionGentlyUsed, models.ItemConditionWellWorn,
	}
	garments = []string{
		"Denim Jacket", "Wool Coat", "Linen Shirt", "Summer Dress", "Corduroy Pants",
		"Knit Sweater", "Rain Parka", "Silk Scarf", "Leather Boots", "Canvas Sneakers",
		"Pleated Skirt", "Flannel Shirt", "Puffer Vest", "Cotton Hoodie", "Blazer",
	}
	styles = []string{"Vintage", "Classic", "Oversized", "Cropped", "Handmade", "Retro", "Minimalist"}
	sizes  = []string{"XS", "S", "M", "L", "XL", "One size"}
	tags   = []string{"vintage", "sustainable", "designer", "casual", "formal", "streetwear", "cozy", "summer", "winter"}
)

// BuildUser constructs an unpersisted member with a realistic profile.
func (f *Factory) BuildUser(passwordHash string) *models.User {
	return &models.User{
		Name:                  gofakeit.Name(),
		Email:                 strings.ToLower(gofakeit.Username()) + "@example.com",
		PasswordHash:          passwordHash,
		Location:              gofakeit.City(),
		Points:                f.rand.Intn(200),
		AvatarURL:             fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		PreferredMeetingPlace: gofakeit.Street(),
		Role:                  models.UserRoleMember,
	}
}

// BuildItem constructs an unpersisted listing for the given uploader with a
// created_at spread over the past maxDays days.
func (f *Factory) BuildItem(uploaderID uint, status models.ItemStatus, maxDays int) *models.ClothingItem {
	title := styles[f.rand.Intn(len(styles))] + " " + garments[f.rand.Intn(len(garments))]

	imageCount := 1 + f.rand.Intn(3)
	images := make(models.StringList, 0, imageCount)
	for i := 0; i < imageCount; i++ {
		images = append(images, fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID()))
	}

	tagCount := 1 + f.rand.Intn(3)
	itemTags := make(models.StringList, 0, tagCount)
	for i := 0; i < tagCount; i++ {
		itemTags = append(itemTags, tags[f.rand.Intn(len(tags))])
	}

	if maxDays <= 0 {
		maxDays = 90
	}
	createdAt := time.Now().
		Add(-time.Duration(f.rand.Intn(maxDays)) * 24 * time.Hour).
		Add(-time.Duration(f.rand.Intn(24)) * time.Hour)

	return &models.ClothingItem{
		Title:       title,
		Description: gofakeit.Paragraph(1, 3, 8, "\n"),
		Category:    categories[f.rand.Intn(len(categories))],
		Type:        []string{"women", "men", "unisex", "kids"}[f.rand.Intn(4)],
		Size:        sizes[f.rand.Intn(len(sizes))],
		Condition:   conditions[f.rand.Intn(len(conditions))],
		Images:      images,
		Tags:        itemTags,
		UploaderID:  uploaderID,
		Status:      status,
		PointsValue: models.MinPointsValue + f.rand.Intn(120),
		Featured:    status == models.ItemStatusAvailable && f.rand.Intn(10) == 0,
		CreatedAt:   createdAt,
	}
}

// pick returns a random element of users other than excludeID, or nil when no
// such user exists.
func (f *Factory) pick(users []*models.User, excludeID uint) *models.User {
	candidates := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u.ID != excludeID {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[f.rand.Intn(len(candidates))]
}
