// File: internal/profile/handler.go
package profile

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coach_admin_backend/internal/common"
)

const coachCreatedMessage = "Coach created successfully!"

// Handler struct holds dependencies for profile handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new profile handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the dashboard routes. createMW runs in front of
// the provisioning route only.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, createMW ...gin.HandlerFunc) {
	router.POST("/create-coach", append(createMW, h.createCoach)...)
	router.GET("/users", h.listUsers)
	router.GET("/stats", h.stats)
}

func (h *Handler) createCoach(c *gin.Context) {
	var req CreateCoachRequest
	// An empty body is an empty form; the identity provider rejects it.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("Create coach: invalid request body", zap.Error(err))
		common.RespondWithError(c, err)
		return
	}

	result, err := h.service.ProvisionCoach(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, CreateCoachResponse{
		Success: true,
		Message: coachCreatedMessage,
		UID:     result.UID,
	})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.service.ListProfiles(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, ListUsersResponse{Success: true, Users: users})
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, StatsResponse{Success: true, Stats: *stats})
}
