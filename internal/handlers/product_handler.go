package handlers

import (
	"io"
	"log"
	"mime/multipart"
	"net/url"
	"strconv"

	"lapak/internal/apperror"
	"lapak/internal/models"
	"lapak/internal/repositories"
	"lapak/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the product routes with the Fiber app. Reads are
// public; writes are guarded by authRequired. The category route must be
// registered before the id route so it matches first.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleList)
	productRoutes.Get("/category/:category", h.HandleListByCategory)
	productRoutes.Get("/:id", h.HandleGetByID)
	productRoutes.Post("/", authRequired, h.HandleCreate)
	productRoutes.Put("/:id", authRequired, h.HandleUpdate)
	productRoutes.Delete("/:id", authRequired, h.HandleDelete)
}

// HandleList lists products, newest first, with optional category, shop and
// search filters.
func (h *ProductHandler) HandleList(c *fiber.Ctx) error {
	filter := repositories.ProductFilter{
		Category: models.Category(c.Query("category")),
		OwnerID:  c.Query("shopId"),
		Search:   c.Query("search"),
	}

	products, pagination, err := h.service.List(filter, c.QueryInt("page", 1), c.QueryInt("limit", 10))
	if err != nil {
		return respondError(c, err)
	}

	return respond(c, fiber.StatusOK, "", fiber.Map{
		"products":   products,
		"pagination": pagination,
	})
}

// HandleListByCategory lists one category with the same pagination contract.
func (h *ProductHandler) HandleListByCategory(c *fiber.Ctx) error {
	category := c.Params("category")
	if decoded, err := url.PathUnescape(category); err == nil {
		category = decoded
	}

	products, pagination, err := h.service.ListByCategory(models.Category(category), c.QueryInt("page", 1), c.QueryInt("limit", 10))
	if err != nil {
		return respondError(c, err)
	}

	return respond(c, fiber.StatusOK, "", fiber.Map{
		"products":   products,
		"pagination": pagination,
	})
}

// HandleGetByID retrieves a single product with its full owner summary.
func (h *ProductHandler) HandleGetByID(c *fiber.Ctx) error {
	product, err := h.service.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "", fiber.Map{
		"product": product,
	})
}

// HandleCreate creates a product from a multipart form carrying the image.
func (h *ProductHandler) HandleCreate(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)

	input := services.CreateProductInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Category:    models.Category(c.FormValue("category")),
	}
	if raw := c.FormValue("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return respondError(c, apperror.NewValidation("price must be a number"))
		}
		input.Price = price
	}
	if raw := c.FormValue("inStock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			return respondError(c, apperror.NewValidation("inStock must be true or false"))
		}
		input.InStock = &inStock
	}

	if err := h.validate.Struct(input); err != nil {
		return respondError(c, apperror.NewValidation(validationMessage(err)))
	}

	image, filename, err := readImageFile(c)
	if err != nil {
		return respondError(c, err)
	}
	if len(image) == 0 {
		return respondError(c, apperror.NewValidation("product image is required"))
	}

	product, err := h.service.Create(c.Context(), ownerID, input, image, filename)
	if err != nil {
		log.Printf("Error creating product for user %s: %v", ownerID, err)
		return respondError(c, err)
	}

	return respond(c, fiber.StatusCreated, "Product created successfully", fiber.Map{
		"product": product,
	})
}

// HandleUpdate applies a partial multipart patch, optionally replacing the
// product image.
func (h *ProductHandler) HandleUpdate(c *fiber.Ctx) error {
	requesterID, _ := c.Locals("user_id").(string)

	form, err := c.MultipartForm()
	if err != nil {
		return respondError(c, apperror.NewValidation("request must be multipart/form-data"))
	}

	var patch services.UpdateProductInput
	if v, ok := formValue(form, "title"); ok {
		patch.Title = &v
	}
	if v, ok := formValue(form, "description"); ok {
		patch.Description = &v
	}
	if v, ok := formValue(form, "category"); ok {
		category := models.Category(v)
		patch.Category = &category
	}
	if v, ok := formValue(form, "price"); ok {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return respondError(c, apperror.NewValidation("price must be a number"))
		}
		patch.Price = &price
	}
	if v, ok := formValue(form, "inStock"); ok {
		inStock, err := strconv.ParseBool(v)
		if err != nil {
			return respondError(c, apperror.NewValidation("inStock must be true or false"))
		}
		patch.InStock = &inStock
	}

	image, filename, err := readImageFile(c)
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.service.Update(c.Context(), c.Params("id"), requesterID, patch, image, filename)
	if err != nil {
		log.Printf("Error updating product %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}

	return respond(c, fiber.StatusOK, "Product updated successfully", fiber.Map{
		"product": product,
	})
}

// HandleDelete removes a product and its stored image.
func (h *ProductHandler) HandleDelete(c *fiber.Ctx) error {
	requesterID, _ := c.Locals("user_id").(string)

	if err := h.service.Delete(c.Context(), c.Params("id"), requesterID); err != nil {
		log.Printf("Error deleting product %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}

	return respond(c, fiber.StatusOK, "Product deleted successfully", nil)
}

// readImageFile pulls the optional multipart image out of the request.
// A request without an image part yields nil data and no error.
func readImageFile(c *fiber.Ctx) ([]byte, string, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return nil, "", nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", apperror.NewValidation("could not read uploaded image")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", apperror.NewValidation("could not read uploaded image")
	}
	return data, fileHeader.Filename, nil
}

func formValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}
