package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jeevijay-developers/riskmarshal-office/config"
	"github.com/jeevijay-developers/riskmarshal-office/middleware"
)

type AuthHandler struct {
	config *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{config: cfg}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Username  string `json:"username"`
	Agency    string `json:"agency"`
}

// Login handles operator login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user := h.config.FindUser(req.Username)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	if user.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, expiresAt, err := middleware.GenerateToken(user.Username, user.Agency, &h.config.Auth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00"),
		Username:  user.Username,
		Agency:    user.Agency,
	})
}

// GetCurrentUser returns the current operator info
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	username := middleware.GetUsername(c)
	agency := middleware.GetAgency(c)

	c.JSON(http.StatusOK, gin.H{
		"username": username,
		"agency":   agency,
	})
}
