package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ItemStatus defines the moderation/exchange state of a listing.
type ItemStatus string

const (
	// ItemStatusPendingApproval indicates a listing awaiting admin review.
	ItemStatusPendingApproval ItemStatus = "pending-approval"
	// ItemStatusAvailable indicates a listing visible and open for requests.
	ItemStatusAvailable ItemStatus = "available"
	// ItemStatusInSwap indicates a listing with an approved, unresolved swap.
	ItemStatusInSwap ItemStatus = "in-swap"
	// ItemStatusRedeemed indicates a listing exchanged via a completed swap.
	ItemStatusRedeemed ItemStatus = "redeemed"
	// ItemStatusRejected indicates a listing declined by moderation.
	ItemStatusRejected ItemStatus = "rejected"
)

// ItemCategory is the browse category of a listing.
type ItemCategory string

const (
	ItemCategoryWomen       ItemCategory = "women"
	ItemCategoryMen         ItemCategory = "men"
	ItemCategoryKids        ItemCategory = "kids"
	ItemCategoryAccessories ItemCategory = "accessories"
	ItemCategoryShoes       ItemCategory = "shoes"
)

// ItemCondition describes garment wear.
type ItemCondition string

const (
	ItemConditionNew        ItemCondition = "new"
	ItemConditionLikeNew    ItemCondition = "like-new"
	ItemConditionGentlyUsed ItemCondition = "gently-used"
	ItemConditionWellWorn   ItemCondition = "well-worn"
)

const (
	// MinItemImages and MaxItemImages bound the images list on a listing.
	MinItemImages = 1
	MaxItemImages = 5
	// MinPointsValue and MaxPointsValue bound the redemption price.
	MinPointsValue = 1
	MaxPointsValue = 1000
)

// StringList stores a []string as a JSON column so the same model works on
// Postgres and the sqlite driver used in tests.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type %T for StringList", value)
	}
}

// ClothingItem represents a garment listed for swap or points redemption.
type ClothingItem struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Title       string        `gorm:"size:200;not null" json:"title"`
	Description string        `gorm:"type:text;not null" json:"description"`
	Category    ItemCategory  `gorm:"type:varchar(20);not null;index" json:"category"`
	Type        string        `gorm:"size:20;not null" json:"type"` // men, women, unisex, kids
	Size        string        `gorm:"size:20;not null" json:"size"`
	Condition   ItemCondition `gorm:"type:varchar(20);not null" json:"condition"`
	Images      StringList    `gorm:"type:text" json:"images"`
	Tags        StringList    `gorm:"type:text" json:"tags"`
	UploaderID  uint          `gorm:"not null;index" json:"uploader_id"`
	Uploader    *User         `gorm:"foreignKey:UploaderID" json:"uploader,omitempty"`
	Status      ItemStatus    `gorm:"type:varchar(20);not null;default:'pending-approval';index" json:"status"`
	PointsValue int           `gorm:"not null" json:"points_value"`
	Featured    bool          `gorm:"not null;default:false" json:"featured"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ClothingItem) TableName() string {
	return "clothing_items"
}
