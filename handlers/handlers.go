package handlers

import (
	"errors"
	"net/http"
	"time"

	"inspection-service/database"
	"inspection-service/middleware"
	"inspection-service/models"
	ws "inspection-service/websocket"
	"inspection-service/workflow"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

// Handlers handles HTTP requests for the inspection service
type Handlers struct {
	auth        *database.AuthService
	inspections *database.InspectionService
	agencies    *database.AgencyService
	wf          *workflow.Workflow
	hub         *ws.Hub
}

// NewHandlers creates a new handlers instance
func NewHandlers(auth *database.AuthService, inspections *database.InspectionService,
	agencies *database.AgencyService, wf *workflow.Workflow, hub *ws.Hub) *Handlers {
	return &Handlers{
		auth:        auth,
		inspections: inspections,
		agencies:    agencies,
		wf:          wf,
		hub:         hub,
	}
}

// SubmitInspection handles inspection form submissions
func (h *Handlers) SubmitInspection(c *gin.Context) {
	var req models.SubmitInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.wf.Submit(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		h.writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// RetryPhotos handles re-upload of checklist slots that failed during the
// original submission
func (h *Handlers) RetryPhotos(c *gin.Context) {
	var req models.RetryPhotosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.wf.RetryPhotos(c.Request.Context(), middleware.CurrentUser(c),
		c.Param("id"), req.Photos)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "inspection not found"})
			return
		}
		h.writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListInspections returns inspections newest first, optionally filtered
// by plate substring
func (h *Handlers) ListInspections(c *gin.Context) {
	inspections, err := h.inspections.ListInspections(c.Request.Context(), c.Query("plate"))
	if err != nil {
		log.Errorf("Failed to list inspections: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to retrieve inspections"})
		return
	}
	c.JSON(http.StatusOK, inspections)
}

// GetInspection returns a single inspection with its photos
func (h *Handlers) GetInspection(c *gin.Context) {
	insp, err := h.inspections.GetInspection(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "inspection not found"})
			return
		}
		log.Errorf("Failed to get inspection: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to retrieve inspection"})
		return
	}
	c.JSON(http.StatusOK, insp)
}

// GetChecklist returns the active photo checklist
func (h *Handlers) GetChecklist(c *gin.Context) {
	c.JSON(http.StatusOK, h.wf.Checklist())
}

// ListAgencies returns the agency reference list
func (h *Handlers) ListAgencies(c *gin.Context) {
	agencies, err := h.agencies.ListAgencies(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to list agencies: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to retrieve agencies"})
		return
	}
	c.JSON(http.StatusOK, agencies)
}

// WebSocket upgrader
var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ListenInspections handles WebSocket connections for live inspection
// updates
func (h *Handlers) ListenInspections(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("Failed to upgrade connection to WebSocket: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// HealthCheck returns the service health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	connectedClients, _ := h.hub.GetStats()
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:           "healthy",
		Service:          "inspection-service",
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		ConnectedClients: connectedClients,
	})
}

// writeWorkflowError maps workflow errors to HTTP responses. Backend
// failures surface a generic message; details stay in the logs.
func (h *Handlers) writeWorkflowError(c *gin.Context, err error) {
	var verr *workflow.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: verr.Error()})
	case errors.Is(err, workflow.ErrAuthentication):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "authentication required"})
	case errors.Is(err, workflow.ErrAllocation), errors.Is(err, workflow.ErrPersistence):
		log.Errorf("Submission failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "could not save the inspection, please retry"})
	default:
		log.Errorf("Submission failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "could not save the inspection, please retry"})
	}
}
