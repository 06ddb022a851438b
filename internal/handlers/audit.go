package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/models"
	"github.com/VatsalPandya47/taskmind/internal/services"
	"github.com/VatsalPandya47/taskmind/internal/store"

	"github.com/gin-gonic/gin"
)

const (
	// queryValueTrue represents the string "true" used in query parameters
	queryValueTrue = "true"
)

// AuditHandler exposes the caller's own audit trail
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

// paginationFromQuery reads page, page_size and search
func paginationFromQuery(c *gin.Context) store.PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return store.NewPaginationParams(page, pageSize, c.Query("search"))
}

// ListAuditLogs godoc
//
//	@Summary	List the caller's audit events
//	@Tags		Audit
//	@Produce	json
//	@Param		page		query		int		false	"Page number"
//	@Param		page_size	query		int		false	"Page size (max 50)"
//	@Param		event_type	query		string	false	"Event type filter"
//	@Param		provider	query		string	false	"Provider filter"
//	@Param		success		query		bool	false	"Outcome filter"
//	@Param		start_time	query		string	false	"RFC3339 lower bound"
//	@Param		end_time	query		string	false	"RFC3339 upper bound"
//	@Success	200			{object}	object{logs=[]models.AuditLog,pagination=store.PaginationResult}
//	@Security	BearerAuth
//	@Router		/api/audit [get]
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	filters := store.AuditLogFilters{
		EventType: models.EventType(c.Query("event_type")),
		Provider:  c.Query("provider"),
	}

	// Parse success filter (optional boolean)
	if successStr := c.Query("success"); successStr != "" {
		success := successStr == queryValueTrue
		filters.Success = &success
	}

	// Parse time range
	if startTimeStr := c.Query("start_time"); startTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			filters.StartTime = t
		}
	}
	if endTimeStr := c.Query("end_time"); endTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			filters.EndTime = t
		}
	}

	logs, pagination, err := h.auditService.ListUserAuditLogs(
		c.Request.Context(),
		callerID(c),
		paginationFromQuery(c),
		filters,
	)
	if err != nil {
		respondError(c, "Audit", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":       logs,
		"pagination": pagination,
	})
}
