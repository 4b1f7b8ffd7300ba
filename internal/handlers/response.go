package handlers

import (
	"fmt"
	"log"
	"strings"

	"lapak/internal/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// respond writes a success envelope with the given status.
func respond(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// respondError maps a domain error to its HTTP status. Unclassified errors
// are logged server-side and masked behind a generic message.
func respondError(c *fiber.Ctx, err error) error {
	if appErr, ok := apperror.As(err); ok {
		if appErr.Err != nil {
			log.Printf("Error on %s %s: %v", c.Method(), c.Path(), err)
		}
		return c.Status(appErr.StatusCode()).JSON(Response{
			Success: false,
			Message: appErr.Message,
		})
	}
	log.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(Response{
		Success: false,
		Message: "Server error",
	})
}

// validationMessage flattens validator errors into a single client message.
func validationMessage(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return "Validation failed"
	}
	parts := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		parts = append(parts, fmt.Sprintf("field '%s' failed on the '%s' rule", strings.ToLower(e.Field()), e.Tag()))
	}
	return "Validation failed: " + strings.Join(parts, "; ")
}
