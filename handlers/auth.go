package handlers

import (
	"errors"
	"net/http"

	"inspection-service/database"
	"inspection-service/middleware"
	"inspection-service/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// Login handles email + PIN authentication
func (h *Handlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	tokens, err := h.auth.Login(c.Request.Context(), req.Email, req.Pin)
	if err != nil {
		if errors.Is(err, database.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid email or pin"})
			return
		}
		log.Errorf("Login failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to log in"})
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// RefreshToken exchanges a refresh token for a new token pair
func (h *Handlers) RefreshToken(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	tokens, err := h.auth.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid or expired refresh token"})
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Logout revokes the authenticated user's tokens
func (h *Handlers) Logout(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.auth.Logout(c.Request.Context(), userID); err != nil {
		log.Errorf("Logout failed for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to log out"})
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "logged out"})
}

// GetMe returns the authenticated user's profile
func (h *Handlers) GetMe(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, user)
}
