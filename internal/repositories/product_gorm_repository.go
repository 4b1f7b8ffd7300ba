package repositories

import (
	"errors"
	"fmt"

	"lapak/internal/apperror"
	"lapak/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetByID retrieves a single product with its full owner record. A badly
// formatted id simply matches nothing and reports not found.
func (r *GORMProductRepository) GetByID(id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.Preload("Owner").First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound("product not found")
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// List returns one page of products matching the filter, newest first, plus
// the total match count. Search matches title or description, ignoring case;
// title hits rank above description hits. Owners are attached as a summary
// without email.
func (r *GORMProductRepository) List(filter ProductFilter, page, limit int) ([]models.Product, int64, error) {
	var total int64
	if err := r.applyFilter(r.db.Model(&models.Product{}), filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	q := r.applyFilter(r.db.Model(&models.Product{}), filter)
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Clauses(clause.OrderBy{
			Expression: gorm.Expr("CASE WHEN LOWER(title) LIKE LOWER(?) THEN 0 ELSE 1 END, created_at DESC", pattern),
		})
	} else {
		q = q.Order("created_at DESC")
	}

	var products []models.Product
	err := q.
		Preload("Owner", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, username, shop_name")
		}).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, total, nil
}

// Update updates an existing product in the database.
func (r *GORMProductRepository) Update(product *models.Product) error {
	// Omit associations so a preloaded Owner is never written back.
	res := r.db.Omit(clause.Associations).Save(product) // Save will update all fields, including zero values
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Save doesn't return ErrRecordNotFound for a missing row, so we
		// check RowsAffected.
		return apperror.NewNotFound("product not found")
	}
	return nil
}

// Delete deletes a product by its ID from the database.
func (r *GORMProductRepository) Delete(id string) error {
	res := r.db.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NewNotFound("product not found")
	}
	return nil
}

func (r *GORMProductRepository) applyFilter(q *gorm.DB, filter ProductFilter) *gorm.DB {
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.OwnerID != "" {
		q = q.Where("user_id = ?", filter.OwnerID)
	}
	if filter.Search != "" {
		// LOWER both sides so matching is case-insensitive on SQLite and
		// Postgres alike; their bare LIKE semantics differ.
		pattern := "%" + filter.Search + "%"
		q = q.Where("LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", pattern, pattern)
	}
	return q
}
