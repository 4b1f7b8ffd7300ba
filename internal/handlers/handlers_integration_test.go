package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"lapak/internal/apperror"
	"lapak/internal/handlers"
	"lapak/internal/middleware"
	"lapak/internal/models"
	"lapak/internal/repositories"
	"lapak/internal/services"
	"lapak/pkg/imagestore"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeImageStore is an in-memory imagestore.Store for integration tests.
type fakeImageStore struct {
	mu          sync.Mutex
	counter     int
	stored      map[string]string // deleteID -> url
	failUploads bool
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{stored: map[string]string{}}
}

func (f *fakeImageStore) Upload(_ context.Context, data []byte, _ string) (*imagestore.UploadResult, error) {
	if f.failUploads {
		return nil, apperror.NewUpload("image upload failed", fmt.Errorf("store unreachable"))
	}
	if len(data) == 0 {
		return nil, apperror.NewValidation("image data is empty")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	deleteID := fmt.Sprintf("img-%d", f.counter)
	url := "https://images.example.com/products/" + deleteID
	f.stored[deleteID] = url
	return &imagestore.UploadResult{URL: url, DeleteID: deleteID}, nil
}

func (f *fakeImageStore) Delete(_ context.Context, deleteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, deleteID)
	return nil
}

// setupApp sets up a Fiber app for testing with an in-memory SQLite database
// and a fake image store.
func setupApp(t *testing.T) (*fiber.App, *fakeImageStore) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Product{}); err != nil {
		t.Fatalf("failed to auto-migrate database: %v", err)
	}

	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	images := newFakeImageStore()

	authService := services.NewAuthService(userRepo, "test_jwt_secret", 0)
	productService := services.NewProductService(productRepo, images, nil)

	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService)

	app := fiber.New()
	api := app.Group("/api")
	authRequired := middleware.AuthRequired(authService)
	authHandler.RegisterRoutes(api, authRequired)
	productHandler.RegisterRoutes(api, authRequired)

	return app, images
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func doMultipart(t *testing.T, app *fiber.App, method, path string, fields map[string]string, image []byte, token string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		assert.NoError(t, writer.WriteField(key, value))
	}
	if image != nil {
		part, err := writer.CreateFormFile("image", "product.png")
		assert.NoError(t, err)
		_, err = part.Write(image)
		assert.NoError(t, err)
	}
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func registerUser(t *testing.T, app *fiber.App, username, email string) (userID, token string) {
	t.Helper()
	status, env := doJSON(t, app, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusCreated, status)
	assert.True(t, env.Success)

	user := env.Data["user"].(map[string]interface{})
	return user["id"].(string), env.Data["token"].(string)
}

func createProduct(t *testing.T, app *fiber.App, token, title string, category models.Category) string {
	t.Helper()
	status, env := doMultipart(t, app, http.MethodPost, "/api/products", map[string]string{
		"title":       title,
		"description": "A perfectly fine product",
		"category":    string(category),
		"price":       "9.99",
	}, []byte("fake-image-bytes"), token)
	assert.Equal(t, http.StatusCreated, status)
	assert.True(t, env.Success)

	product := env.Data["product"].(map[string]interface{})
	return product["id"].(string)
}

func TestRegisterLoginAndMe(t *testing.T) {
	app, _ := setupApp(t)

	userID, token := registerUser(t, app, "seller", "seller@example.com")

	// The password hash never reaches the client
	status, env := doJSON(t, app, http.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, http.StatusOK, status)
	me := env.Data["user"].(map[string]interface{})
	assert.Equal(t, userID, me["id"])
	assert.Equal(t, "seller", me["username"])
	assert.NotContains(t, me, "password")
	assert.NotContains(t, me, "Password")

	// Login with the registered credentials
	status, env = doJSON(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "seller@example.com",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, env.Data["token"])

	// Wrong password and unknown email produce the identical message
	status, wrongPass := doJSON(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "seller@example.com",
		"password": "nope-nope",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, unknownEmail := doJSON(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, wrongPass.Message, unknownEmail.Message)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app, _ := setupApp(t)

	registerUser(t, app, "first", "taken@example.com")

	status, env := doJSON(t, app, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "second",
		"email":    "taken@example.com",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "email")

	// The first user is unaffected
	status, _ = doJSON(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "taken@example.com",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestMeRequiresToken(t *testing.T) {
	app, _ := setupApp(t)

	status, env := doJSON(t, app, http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)

	status, _ = doJSON(t, app, http.MethodGet, "/api/auth/me", nil, "not-a-real-token")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCreateProduct(t *testing.T) {
	app, images := setupApp(t)
	userID, token := registerUser(t, app, "seller", "seller@example.com")

	status, env := doMultipart(t, app, http.MethodPost, "/api/products", map[string]string{
		"title":       "  Mechanical Keyboard  ",
		"description": "Clacky in the best way",
		"category":    string(models.CategoryElectronics),
		"price":       "75.00",
	}, []byte("fake-image-bytes"), token)
	assert.Equal(t, http.StatusCreated, status)

	product := env.Data["product"].(map[string]interface{})
	assert.Equal(t, "Mechanical Keyboard", product["title"]) // trimmed
	assert.Equal(t, userID, product["user_id"])
	assert.Equal(t, true, product["in_stock"])
	assert.NotEmpty(t, product["image_url"])
	assert.Len(t, images.stored, 1)

	// Round-trip through GetById keeps the title intact and attaches the
	// full owner summary
	productID := product["id"].(string)
	status, env = doJSON(t, app, http.MethodGet, "/api/products/"+productID, nil, "")
	assert.Equal(t, http.StatusOK, status)
	fetched := env.Data["product"].(map[string]interface{})
	assert.Equal(t, "Mechanical Keyboard", fetched["title"])
	owner := fetched["owner"].(map[string]interface{})
	assert.Equal(t, "seller", owner["username"])
	assert.Equal(t, "seller@example.com", owner["email"])
}

func TestCreateProductWithoutImage(t *testing.T) {
	app, _ := setupApp(t)
	_, token := registerUser(t, app, "seller", "seller@example.com")

	status, env := doMultipart(t, app, http.MethodPost, "/api/products", map[string]string{
		"title":       "Ghost Product",
		"description": "No image attached",
		"category":    string(models.CategoryElectronics),
	}, nil, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
}

func TestCreateProductRequiresAuth(t *testing.T) {
	app, _ := setupApp(t)

	status, _ := doMultipart(t, app, http.MethodPost, "/api/products", map[string]string{
		"title": "Nope",
	}, []byte("img"), "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCreateProductUploadFailure(t *testing.T) {
	app, images := setupApp(t)
	_, token := registerUser(t, app, "seller", "seller@example.com")
	images.failUploads = true

	status, env := doMultipart(t, app, http.MethodPost, "/api/products", map[string]string{
		"title":       "Doomed Product",
		"description": "The store is down",
		"category":    string(models.CategoryElectronics),
	}, []byte("fake-image-bytes"), token)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, env.Success)

	// Nothing was persisted
	status, env = doJSON(t, app, http.MethodGet, "/api/products", nil, "")
	assert.Equal(t, http.StatusOK, status)
	pagination := env.Data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(0), pagination["total"])
}

func TestListPaginationAndCategoryFilter(t *testing.T) {
	app, _ := setupApp(t)
	_, token := registerUser(t, app, "seller", "seller@example.com")

	for i := 1; i <= 7; i++ {
		createProduct(t, app, token, fmt.Sprintf("Gadget %d", i), models.CategoryElectronics)
	}
	createProduct(t, app, token, "Novel", models.CategoryBooks)

	status, env := doJSON(t, app, http.MethodGet, "/api/products?category=Electronics&page=2&limit=5", nil, "")
	assert.Equal(t, http.StatusOK, status)

	products := env.Data["products"].([]interface{})
	assert.Len(t, products, 2) // 7 electronics, page 2 of limit 5
	for _, raw := range products {
		product := raw.(map[string]interface{})
		assert.Equal(t, string(models.CategoryElectronics), product["category"])
	}
	pagination := env.Data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), pagination["page"])
	assert.Equal(t, float64(2), pagination["pages"]) // ceil(7/5)
	assert.Equal(t, float64(7), pagination["total"])
	assert.Equal(t, float64(5), pagination["limit"])
}

func TestListByCategoryRoute(t *testing.T) {
	app, _ := setupApp(t)
	_, token := registerUser(t, app, "seller", "seller@example.com")
	createProduct(t, app, token, "Garden Gnome", models.CategoryHomeGarden)
	createProduct(t, app, token, "Novel", models.CategoryBooks)

	status, env := doJSON(t, app, http.MethodGet, "/api/products/category/Home%20&%20Garden", nil, "")
	assert.Equal(t, http.StatusOK, status)
	products := env.Data["products"].([]interface{})
	assert.Len(t, products, 1)
	product := products[0].(map[string]interface{})
	assert.Equal(t, "Garden Gnome", product["title"])

	// Unknown category is a validation error, not an empty page
	status, _ = doJSON(t, app, http.MethodGet, "/api/products/category/Gadgets", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListSearch(t *testing.T) {
	app, _ := setupApp(t)
	_, token := registerUser(t, app, "seller", "seller@example.com")
	createProduct(t, app, token, "Wireless Mouse", models.CategoryElectronics)
	createProduct(t, app, token, "Mechanical Keyboard", models.CategoryElectronics)

	status, env := doJSON(t, app, http.MethodGet, "/api/products?search=mouse", nil, "")
	assert.Equal(t, http.StatusOK, status)
	products := env.Data["products"].([]interface{})
	assert.Len(t, products, 1)
	product := products[0].(map[string]interface{})
	assert.Equal(t, "Wireless Mouse", product["title"])

	// Matching ignores case in both directions; the query is lowered
	// explicitly so every driver behaves the same
	for _, search := range []string{"MOUSE", "Mouse", "wIrElEsS"} {
		status, env = doJSON(t, app, http.MethodGet, "/api/products?search="+search, nil, "")
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, env.Data["products"].([]interface{}), 1, search)
	}
	status, env = doJSON(t, app, http.MethodGet, "/api/products?search=KEYBOARD", nil, "")
	assert.Equal(t, http.StatusOK, status)
	products = env.Data["products"].([]interface{})
	assert.Len(t, products, 1)
	product = products[0].(map[string]interface{})
	assert.Equal(t, "Mechanical Keyboard", product["title"])

	// No matches is an empty page, not an error
	status, env = doJSON(t, app, http.MethodGet, "/api/products?search=zeppelin", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, env.Data["products"])
}

func TestListByShop(t *testing.T) {
	app, _ := setupApp(t)
	sellerID, sellerToken := registerUser(t, app, "seller", "seller@example.com")
	_, otherToken := registerUser(t, app, "other", "other@example.com")
	createProduct(t, app, sellerToken, "Mine", models.CategoryOther)
	createProduct(t, app, otherToken, "Theirs", models.CategoryOther)

	status, env := doJSON(t, app, http.MethodGet, "/api/products?shopId="+sellerID, nil, "")
	assert.Equal(t, http.StatusOK, status)
	products := env.Data["products"].([]interface{})
	assert.Len(t, products, 1)
	product := products[0].(map[string]interface{})
	assert.Equal(t, "Mine", product["title"])
}

func TestUpdateProduct(t *testing.T) {
	app, images := setupApp(t)
	_, token := registerUser(t, app, "seller", "seller@example.com")
	productID := createProduct(t, app, token, "Old Title", models.CategoryElectronics)

	// Partial patch: only the title changes
	status, env := doMultipart(t, app, http.MethodPut, "/api/products/"+productID, map[string]string{
		"title": "New Title",
	}, nil, token)
	assert.Equal(t, http.StatusOK, status)
	product := env.Data["product"].(map[string]interface{})
	assert.Equal(t, "New Title", product["title"])
	assert.Equal(t, "A perfectly fine product", product["description"])

	// Image replacement swaps URL and handle together and removes the old image
	oldURL := product["image_url"].(string)
	status, env = doMultipart(t, app, http.MethodPut, "/api/products/"+productID, nil, []byte("new-image-bytes"), token)
	assert.Equal(t, http.StatusOK, status)
	product = env.Data["product"].(map[string]interface{})
	assert.NotEqual(t, oldURL, product["image_url"])
	assert.Len(t, images.stored, 1)
}

func TestUpdateProductAuthorization(t *testing.T) {
	app, _ := setupApp(t)
	_, ownerToken := registerUser(t, app, "owner", "owner@example.com")
	_, intruderToken := registerUser(t, app, "intruder", "intruder@example.com")
	productID := createProduct(t, app, ownerToken, "Untouchable", models.CategoryElectronics)

	status, env := doMultipart(t, app, http.MethodPut, "/api/products/"+productID, map[string]string{
		"title": "Hijacked",
	}, nil, intruderToken)
	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, env.Success)

	// The product is unchanged
	status, env = doJSON(t, app, http.MethodGet, "/api/products/"+productID, nil, "")
	assert.Equal(t, http.StatusOK, status)
	product := env.Data["product"].(map[string]interface{})
	assert.Equal(t, "Untouchable", product["title"])
}

func TestUpdateProductUploadFailureKeepsOldImage(t *testing.T) {
	app, images := setupApp(t)
	_, token := registerUser(t, app, "seller", "seller@example.com")
	productID := createProduct(t, app, token, "Stable", models.CategoryElectronics)
	images.failUploads = true

	status, _ := doMultipart(t, app, http.MethodPut, "/api/products/"+productID, nil, []byte("new-image-bytes"), token)
	assert.Equal(t, http.StatusInternalServerError, status)

	// The old image is still in the store and still referenced
	assert.Len(t, images.stored, 1)
	status, env := doJSON(t, app, http.MethodGet, "/api/products/"+productID, nil, "")
	assert.Equal(t, http.StatusOK, status)
	product := env.Data["product"].(map[string]interface{})
	assert.Contains(t, product["image_url"], "img-1")
}

func TestDeleteProduct(t *testing.T) {
	app, images := setupApp(t)
	_, ownerToken := registerUser(t, app, "owner", "owner@example.com")
	_, intruderToken := registerUser(t, app, "intruder", "intruder@example.com")
	productID := createProduct(t, app, ownerToken, "Ephemeral", models.CategoryElectronics)

	// Only the owner may delete
	status, _ := doJSON(t, app, http.MethodDelete, "/api/products/"+productID, nil, intruderToken)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := doJSON(t, app, http.MethodDelete, "/api/products/"+productID, nil, ownerToken)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.Empty(t, images.stored)

	// A subsequent lookup reports not found
	status, _ = doJSON(t, app, http.MethodGet, "/api/products/"+productID, nil, "")
	assert.Equal(t, http.StatusNotFound, status)

	// Deleting again reports not found too
	status, _ = doJSON(t, app, http.MethodDelete, "/api/products/"+productID, nil, ownerToken)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGetUnknownProduct(t *testing.T) {
	app, _ := setupApp(t)

	status, env := doJSON(t, app, http.MethodGet, "/api/products/no-such-id", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
}
