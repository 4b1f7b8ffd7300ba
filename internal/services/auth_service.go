package services

import (
	"fmt"
	"strings"
	"time"

	"lapak/internal/apperror"
	"lapak/internal/models"
	"lapak/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and session token verification.
type AuthService struct {
	userRepo   repositories.UserRepository
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenTTL,
	}
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	ShopName string `json:"shopName"`
}

// Register creates a user with a hashed password and returns it together with
// a fresh session token. ShopName defaults to the username when absent.
func (s *AuthService) Register(input RegisterInput) (*models.User, string, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	shopName := strings.TrimSpace(input.ShopName)
	if shopName == "" {
		shopName = username
	}

	// Pre-check for friendly field-specific messages. A race between two
	// registrations still resolves at the store's unique index, which the
	// repository surfaces as a conflict.
	if existing, err := s.userRepo.GetByUsername(username); err == nil && existing != nil {
		return nil, "", apperror.NewConflict(fmt.Sprintf("username '%s' already taken", username))
	}
	if existing, err := s.userRepo.GetByEmail(email); err == nil && existing != nil {
		return nil, "", apperror.NewConflict(fmt.Sprintf("email '%s' already registered", email))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
		ShopName: shopName,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, "", err
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login authenticates a user by email and returns the user with a fresh
// session token. Unknown email and wrong password yield the same generic
// error so callers learn nothing about which field was wrong.
func (s *AuthService) Login(email, password string) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, "", apperror.NewAuth("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", apperror.NewAuth("invalid credentials")
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// VerifyToken parses and validates a session token, then resolves the
// embedded user identifier against the credential store. A token for a user
// that no longer exists is as invalid as a bad signature.
func (s *AuthService) VerifyToken(tokenString string) (*models.User, error) {
	if tokenString == "" {
		return nil, apperror.NewAuth("missing token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.NewAuth("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperror.NewAuth("invalid or expired token")
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, apperror.NewAuth("invalid or expired token")
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, apperror.NewAuth("invalid or expired token")
	}
	return user, nil
}

// GetCurrentUser restores the session behind a bearer token.
func (s *AuthService) GetCurrentUser(tokenString string) (*models.User, error) {
	return s.VerifyToken(tokenString)
}

func (s *AuthService) generateToken(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(s.tokenDurat).Unix(), // Token expiration time
		"iat":      time.Now().Unix(),                   // Issued at time
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}
