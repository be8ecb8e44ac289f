// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"unicode"

	"rewear/internal/models"
)

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < 12 {
		return fmt.Errorf("password must be at least 12 characters long")
	}
	if len(password) > 128 {
		return fmt.Errorf("password must not exceed 128 characters")
	}

	hasUpper := false
	hasLower := false
	for _, r := range password {
		if unicode.IsUpper(r) {
			hasUpper = true
		}
		if unicode.IsLower(r) {
			hasLower = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}

	if !regexp.MustCompile(`[0-9]`).MatchString(password) {
		return fmt.Errorf("password must contain at least one digit")
	}
	if !regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`).MatchString(password) {
		return fmt.Errorf("password must contain at least one special character (!@#$%%^&*)")
	}

	return nil
}

// ValidateName checks a member display name.
func ValidateName(name string) error {
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters long")
	}
	if len(name) > 60 {
		return fmt.Errorf("name must not exceed 60 characters")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	return nil
}

var validCategories = map[models.ItemCategory]struct{}{
	models.ItemCategoryWomen:       {},
	models.ItemCategoryMen:         {},
	models.ItemCategoryKids:        {},
	models.ItemCategoryAccessories: {},
	models.ItemCategoryShoes:       {},
}

var validConditions = map[models.ItemCondition]struct{}{
	models.ItemConditionNew:        {},
	models.ItemConditionLikeNew:    {},
	models.ItemConditionGentlyUsed: {},
	models.ItemConditionWellWorn:   {},
}

// ValidateCategory checks a browse-category value.
func ValidateCategory(category models.ItemCategory) error {
	if _, ok := validCategories[category]; !ok {
		return fmt.Errorf("invalid category %q", category)
	}
	return nil
}

// ValidateItem checks a listing's user-supplied fields before it enters the
// moderation queue.
func ValidateItem(item *models.ClothingItem) error {
	if item.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(item.Title) > 200 {
		return fmt.Errorf("title must not exceed 200 characters")
	}
	if item.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(item.Description) > 5000 {
		return fmt.Errorf("description must not exceed 5000 characters")
	}
	if _, ok := validCategories[item.Category]; !ok {
		return fmt.Errorf("invalid category %q", item.Category)
	}
	if _, ok := validConditions[item.Condition]; !ok {
		return fmt.Errorf("invalid condition %q", item.Condition)
	}
	if item.Size == "" {
		return fmt.Errorf("size is required")
	}
	if len(item.Images) < models.MinItemImages || len(item.Images) > models.MaxItemImages {
		return fmt.Errorf("listings require between %d and %d images", models.MinItemImages, models.MaxItemImages)
	}
	if item.PointsValue < models.MinPointsValue || item.PointsValue > models.MaxPointsValue {
		return fmt.Errorf("points value must be between %d and %d", models.MinPointsValue, models.MaxPointsValue)
	}
	return nil
}
