package handlers

import (
	"errors"
	"log"
	"net/http"

	"todo-list/backend/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	msgRegistered    = "Registration successful."
	msgUsernameTaken = "A user with this username already exists."
)

type AuthHandler struct {
	authService services.AuthService
}

type CredentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest leaves password unchecked so an empty one fails like any
// other wrong password.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "username and password are required",
		})
		return
	}

	if _, err := h.authService.Register(c.Request.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			c.String(http.StatusBadRequest, msgUsernameTaken)
			return
		}
		log.Printf("register %q: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.String(http.StatusOK, msgRegistered)
}

// Login answers every credential failure with the same response.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "username is required",
		})
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		log.Printf("login %q: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token})
}
