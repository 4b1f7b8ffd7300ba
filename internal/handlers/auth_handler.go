package handlers

import (
	"log"

	"lapak/internal/apperror"
	"lapak/internal/models"
	"lapak/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
// authRequired guards the session-restore endpoint.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/me", authRequired, h.HandleMe)
}

// HandleRegister handles new user registration and issues a session token.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var input services.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return respondError(c, apperror.NewValidation("Invalid request body"))
	}

	if err := h.validate.Struct(input); err != nil {
		return respondError(c, apperror.NewValidation(validationMessage(err)))
	}

	user, token, err := h.authService.Register(input)
	if err != nil {
		log.Printf("Error registering user %s: %v", input.Username, err)
		return respondError(c, err)
	}

	return respond(c, fiber.StatusCreated, "User registered successfully", fiber.Map{
		"user":  user,
		"token": token,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a session token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return respondError(c, apperror.NewValidation("Invalid request body"))
	}

	if err := h.validate.Struct(req); err != nil {
		return respondError(c, apperror.NewValidation(validationMessage(err)))
	}

	user, token, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		log.Printf("Error during login for %s: %v", req.Email, err)
		return respondError(c, err)
	}

	return respond(c, fiber.StatusOK, "Login successful", fiber.Map{
		"user":  user,
		"token": token,
	})
}

// HandleMe returns the user resolved by the auth middleware.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return respondError(c, apperror.NewAuth("invalid or expired token"))
	}
	return respond(c, fiber.StatusOK, "", fiber.Map{
		"user": user,
	})
}
