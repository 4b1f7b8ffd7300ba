package repositories

import (
	"lapak/internal/models"
)

// ProductFilter narrows a catalog listing. Zero values mean "no constraint";
// all set fields are AND-combined.
type ProductFilter struct {
	Category models.Category
	OwnerID  string
	Search   string
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	Create(product *models.Product) error
	GetByID(id string) (*models.Product, error)
	List(filter ProductFilter, page, limit int) ([]models.Product, int64, error)
	Update(product *models.Product) error
	Delete(id string) error
}
