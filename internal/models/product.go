package models

import "gorm.io/gorm"

// Category is a product category from the closed set below.
type Category string

const (
	CategoryElectronics   Category = "Electronics"
	CategoryFashion       Category = "Fashion"
	CategoryHomeGarden    Category = "Home & Garden"
	CategorySports        Category = "Sports"
	CategoryBooks         Category = "Books"
	CategoryToys          Category = "Toys"
	CategoryHealthBeauty  Category = "Health & Beauty"
	CategoryFoodBeverages Category = "Food & Beverages"
	CategoryAutomotive    Category = "Automotive"
	CategoryOther         Category = "Other"
)

// Categories returns every valid product category.
func Categories() []Category {
	return []Category{
		CategoryElectronics,
		CategoryFashion,
		CategoryHomeGarden,
		CategorySports,
		CategoryBooks,
		CategoryToys,
		CategoryHealthBeauty,
		CategoryFoodBeverages,
		CategoryAutomotive,
		CategoryOther,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Product represents a listed item in a shop owner's catalog.
// UserID is set at creation and never changes; ImageURL and ImageDeleteID
// always refer to the same stored image and are replaced together.
type Product struct {
	ID            string   `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Title         string   `json:"title" gorm:"type:varchar(100)" validate:"required,min=1,max=100"`
	Description   string   `json:"description" gorm:"type:varchar(1000)" validate:"required,min=1,max=1000"`
	Category      Category `json:"category" gorm:"index;type:varchar(50)" validate:"required"`
	Price         float64  `json:"price" validate:"gte=0"`
	InStock       bool     `json:"in_stock" gorm:"default:true"`
	ImageURL      string   `json:"image_url" validate:"required"`
	ImageDeleteID string   `json:"-" gorm:"type:varchar(255)"`
	UserID        string   `json:"user_id" gorm:"index;type:varchar(36)"`
	Owner         *User    `json:"owner,omitempty" gorm:"foreignKey:UserID"`
	gorm.Model             // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
