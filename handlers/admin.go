package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"inspection-service/database"
	"inspection-service/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// CreateUser handles admin registration of a new inspector
func (h *Handlers) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	user, err := h.auth.CreateUser(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrInvalidPin), errors.Is(err, database.ErrDuplicatePin):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		case errors.Is(err, database.ErrUserExists):
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error()})
		default:
			log.Errorf("Failed to create user: %v", err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create user"})
		}
		return
	}

	c.JSON(http.StatusCreated, user)
}

// ListUsers returns all inspector accounts
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to list users: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to retrieve users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

// DeleteUser removes an inspector account
func (h *Handlers) DeleteUser(c *gin.Context) {
	if err := h.auth.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "user not found"})
			return
		}
		log.Errorf("Failed to delete user: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to delete user"})
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "user deleted successfully"})
}

// UpdatePin resets a user's PIN
func (h *Handlers) UpdatePin(c *gin.Context) {
	var req models.UpdatePinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.auth.UpdatePin(c.Request.Context(), c.Param("id"), req.Pin); err != nil {
		switch {
		case errors.Is(err, database.ErrInvalidPin), errors.Is(err, database.ErrDuplicatePin):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "user not found"})
		default:
			log.Errorf("Failed to update pin: %v", err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update pin"})
		}
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "pin updated successfully"})
}

// UpdateAdmin toggles the admin flag on an account
func (h *Handlers) UpdateAdmin(c *gin.Context) {
	var req models.UpdateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.auth.SetAdmin(c.Request.Context(), c.Param("id"), *req.IsAdmin); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "user not found"})
			return
		}
		log.Errorf("Failed to update admin flag: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update admin flag"})
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "admin flag updated successfully"})
}

// CreateAgency adds an agency to the reference list
func (h *Handlers) CreateAgency(c *gin.Context) {
	var req models.CreateAgencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	agency, err := h.agencies.CreateAgency(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrInvalidAbbreviation):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		case errors.Is(err, database.ErrDuplicateAbbreviation):
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error()})
		default:
			log.Errorf("Failed to create agency: %v", err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create agency"})
		}
		return
	}

	c.JSON(http.StatusCreated, agency)
}

// DeleteAgency removes an agency from the reference list
func (h *Handlers) DeleteAgency(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid agency id"})
		return
	}

	if err := h.agencies.DeleteAgency(c.Request.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "agency not found"})
			return
		}
		log.Errorf("Failed to delete agency: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to delete agency"})
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "agency deleted successfully"})
}

// DeleteInspection removes an inspection record. Remaining records keep
// their numbers.
func (h *Handlers) DeleteInspection(c *gin.Context) {
	if err := h.inspections.DeleteInspection(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "inspection not found"})
			return
		}
		log.Errorf("Failed to delete inspection: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to delete inspection"})
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "inspection deleted successfully"})
}
