package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"unicode/utf8"

	"lapak/internal/apperror"
	"lapak/internal/models"
	"lapak/internal/repositories"
	"lapak/pkg/imagestore"
)

// EventPublisher pushes product lifecycle events to a message broker.
type EventPublisher interface {
	PublishProductEvent(action string, payload map[string]interface{}) error
}

// ProductService handles business logic for the product catalog.
type ProductService struct {
	repo   repositories.ProductRepository
	images imagestore.Store
	events EventPublisher // may be nil; events are best-effort
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, images imagestore.Store, events EventPublisher) *ProductService {
	return &ProductService{
		repo:   repo,
		images: images,
		events: events,
	}
}

// CanModify reports whether the requester owns the resource. Every mutation
// path goes through this single check.
func CanModify(requesterID, ownerID string) bool {
	return requesterID != "" && requesterID == ownerID
}

// CreateProductInput carries the fields accepted at product creation.
type CreateProductInput struct {
	Title       string          `validate:"required,min=1,max=100"`
	Description string          `validate:"required,min=1,max=1000"`
	Category    models.Category `validate:"required"`
	Price       float64         `validate:"gte=0"`
	InStock     *bool
}

// UpdateProductInput is a partial patch; nil fields keep their prior value.
type UpdateProductInput struct {
	Title       *string
	Description *string
	Category    *models.Category
	Price       *float64
	InStock     *bool
}

// Create uploads the image, persists the product and returns it with its
// owner summary attached. An upload failure aborts the whole operation.
func (s *ProductService) Create(ctx context.Context, ownerID string, input CreateProductInput, image []byte, filename string) (*models.Product, error) {
	if !input.Category.Valid() {
		return nil, apperror.NewValidation(fmt.Sprintf("unknown category '%s'", input.Category))
	}
	if len(image) == 0 {
		return nil, apperror.NewValidation("product image is required")
	}

	uploaded, err := s.images.Upload(ctx, image, filename)
	if err != nil {
		return nil, err
	}

	inStock := true
	if input.InStock != nil {
		inStock = *input.InStock
	}

	product := &models.Product{
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Category:      input.Category,
		Price:         input.Price,
		InStock:       inStock,
		ImageURL:      uploaded.URL,
		ImageDeleteID: uploaded.DeleteID,
		UserID:        ownerID,
	}
	if err := s.repo.Create(product); err != nil {
		// The image already landed in the external store; try not to orphan it.
		if delErr := s.images.Delete(ctx, uploaded.DeleteID); delErr != nil {
			log.Printf("Failed to clean up image %s after create failure: %v", uploaded.DeleteID, delErr)
		}
		return nil, err
	}

	if full, err := s.repo.GetByID(product.ID); err == nil {
		product = full
	}

	s.publish("product.created", product)
	return product, nil
}

// List returns one page of products matching the filter, newest first, plus
// pagination metadata. An empty result is an empty slice, not an error.
func (s *ProductService) List(filter repositories.ProductFilter, page, limit int) ([]models.Product, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, nil, apperror.NewValidation(fmt.Sprintf("unknown category '%s'", filter.Category))
	}

	products, total, err := s.repo.List(filter, page, limit)
	if err != nil {
		return nil, nil, err
	}

	pagination := &models.Pagination{
		Page:  page,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
		Total: total,
		Limit: limit,
	}
	return products, pagination, nil
}

// GetByID retrieves a single product with its full owner summary.
func (s *ProductService) GetByID(id string) (*models.Product, error) {
	return s.repo.GetByID(id)
}

// ListByCategory lists one category with the same pagination contract as List.
func (s *ProductService) ListByCategory(category models.Category, page, limit int) ([]models.Product, *models.Pagination, error) {
	if !category.Valid() {
		return nil, nil, apperror.NewValidation(fmt.Sprintf("unknown category '%s'", category))
	}
	return s.List(repositories.ProductFilter{Category: category}, page, limit)
}

// Update applies a partial patch to a product owned by requesterID. When a
// replacement image is supplied, the new image is uploaded first and the old
// one deleted only after the record persisted both the new URL and handle; a
// failed upload leaves the product and its current image untouched.
func (s *ProductService) Update(ctx context.Context, id, requesterID string, patch UpdateProductInput, newImage []byte, filename string) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !CanModify(requesterID, product.UserID) {
		return nil, apperror.NewAuthorization("you do not own this product")
	}

	if patch.Title != nil {
		// Rune counts, matching the validator tags applied at creation.
		title := strings.TrimSpace(*patch.Title)
		if title == "" || utf8.RuneCountInString(title) > 100 {
			return nil, apperror.NewValidation("title must be between 1 and 100 characters")
		}
		product.Title = title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if description == "" || utf8.RuneCountInString(description) > 1000 {
			return nil, apperror.NewValidation("description must be between 1 and 1000 characters")
		}
		product.Description = description
	}
	if patch.Category != nil {
		if !patch.Category.Valid() {
			return nil, apperror.NewValidation(fmt.Sprintf("unknown category '%s'", *patch.Category))
		}
		product.Category = *patch.Category
	}
	if patch.Price != nil {
		if *patch.Price < 0 {
			return nil, apperror.NewValidation("price must not be negative")
		}
		product.Price = *patch.Price
	}
	if patch.InStock != nil {
		product.InStock = *patch.InStock
	}

	if len(newImage) > 0 {
		uploaded, err := s.images.Upload(ctx, newImage, filename)
		if err != nil {
			return nil, err
		}
		oldDeleteID := product.ImageDeleteID
		product.ImageURL = uploaded.URL
		product.ImageDeleteID = uploaded.DeleteID
		if err := s.repo.Update(product); err != nil {
			if delErr := s.images.Delete(ctx, uploaded.DeleteID); delErr != nil {
				log.Printf("Failed to clean up image %s after update failure: %v", uploaded.DeleteID, delErr)
			}
			return nil, err
		}
		if err := s.images.Delete(ctx, oldDeleteID); err != nil {
			log.Printf("Failed to delete replaced image %s for product %s: %v", oldDeleteID, id, err)
		}
	} else {
		if err := s.repo.Update(product); err != nil {
			return nil, err
		}
	}

	s.publish("product.updated", product)
	return product, nil
}

// Delete removes a product owned by requesterID along with its stored image.
// Image deletion is attempted first but its failure never blocks the record
// delete; the record must not become undeletable on external-store failures.
func (s *ProductService) Delete(ctx context.Context, id, requesterID string) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if !CanModify(requesterID, product.UserID) {
		return apperror.NewAuthorization("you do not own this product")
	}

	if err := s.images.Delete(ctx, product.ImageDeleteID); err != nil {
		log.Printf("Failed to delete image %s for product %s: %v", product.ImageDeleteID, id, err)
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.publish("product.deleted", product)
	return nil
}

// publish sends a product lifecycle event, best-effort.
func (s *ProductService) publish(action string, product *models.Product) {
	if s.events == nil {
		return
	}
	payload := map[string]interface{}{
		"product_id": product.ID,
		"title":      product.Title,
		"category":   string(product.Category),
		"owner_id":   product.UserID,
	}
	if err := s.events.PublishProductEvent(action, payload); err != nil {
		log.Printf("Failed to publish %s event for product %s: %v", action, product.ID, err)
	}
}
