package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/integrations"
	"github.com/VatsalPandya47/taskmind/internal/models"
	"github.com/VatsalPandya47/taskmind/internal/services"

	"github.com/gin-gonic/gin"
)

// SummaryHandler stores meeting summaries and syncs their action items
type SummaryHandler struct {
	summaries *services.SummaryService
}

func NewSummaryHandler(summaries *services.SummaryService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries}
}

type ingestSummaryRequest struct {
	UserID       string             `json:"user_id"       binding:"required"`
	MeetingTitle string             `json:"meeting_title" binding:"required"`
	MeetingDate  string             `json:"meeting_date"`
	Summary      string             `json:"summary"`
	ActionItems  models.ActionItems `json:"action_items"`
}

// parseMeetingDate accepts RFC3339 or a bare YYYY-MM-DD
func parseMeetingDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// IngestSummary godoc
//
//	@Summary		Store a meeting summary
//	@Description	Called by the summarization function with the service role key
//	@Tags			Summaries
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ingestSummaryRequest	true	"Summary"
//	@Success		201		{object}	object{summary=models.Summary}
//	@Failure		400		{object}	object{error=string,error_description=string}
//	@Security		ServiceKey
//	@Router			/internal/summaries [post]
func (h *SummaryHandler) IngestSummary(c *gin.Context) {
	var req ingestSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be JSON with user_id and meeting_title")
		return
	}

	meetingDate, err := parseMeetingDate(req.MeetingDate)
	if err != nil {
		badRequest(c, "meeting_date must be RFC3339 or YYYY-MM-DD")
		return
	}

	summary, err := h.summaries.Ingest(c.Request.Context(), services.SummaryInput{
		UserID:       req.UserID,
		MeetingTitle: req.MeetingTitle,
		MeetingDate:  meetingDate,
		Summary:      req.Summary,
		ActionItems:  req.ActionItems,
	})
	if err != nil {
		respondError(c, "Summary", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"summary": summary})
}

// ListSummaries godoc
//
//	@Summary	List the caller's meeting summaries
//	@Tags		Summaries
//	@Produce	json
//	@Param		page		query		int		false	"Page number"
//	@Param		page_size	query		int		false	"Page size (max 50)"
//	@Param		search		query		string	false	"Meeting title filter"
//	@Success	200			{object}	object{summaries=[]models.Summary,pagination=store.PaginationResult}
//	@Security	BearerAuth
//	@Router		/api/summaries [get]
func (h *SummaryHandler) ListSummaries(c *gin.Context) {
	summaries, pagination, err := h.summaries.List(
		c.Request.Context(),
		callerID(c),
		paginationFromQuery(c),
	)
	if err != nil {
		respondError(c, "Summary", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summaries":  summaries,
		"pagination": pagination,
	})
}

func (h *SummaryHandler) GetSummary(c *gin.Context) {
	summary, err := h.summaries.Get(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, "Summary", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

type syncSummaryRequest struct {
	Provider string              `json:"provider" binding:"required"`
	Target   services.SyncTarget `json:"target"`
}

// SyncSummary godoc
//
//	@Summary		Create the summary's action items in a connected tool
//	@Description	Items are created in order and the first failure stops the sync. A partial result is returned with the error.
//	@Tags			Summaries
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Summary ID"
//	@Param			body	body		syncSummaryRequest	true	"Destination"
//	@Success		200		{object}	object{result=services.SyncResult}
//	@Failure		400		{object}	object{error=string,error_description=string}
//	@Failure		404		{object}	object{error=string,error_description=string}
//	@Failure		502		{object}	object{error=string,result=services.SyncResult}
//	@Security		BearerAuth
//	@Router			/api/summaries/{id}/sync [post]
func (h *SummaryHandler) SyncSummary(c *gin.Context) {
	var req syncSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be JSON with provider")
		return
	}

	result, err := h.summaries.Sync(
		c.Request.Context(),
		callerID(c),
		c.Param("id"),
		req.Provider,
		req.Target,
	)
	if err != nil {
		var upErr *integrations.UpstreamError
		if result != nil && errors.As(err, &upErr) {
			log.Printf("[Summary] %v", upErr)
			body := upstreamBody(upErr)
			body["result"] = result
			c.JSON(http.StatusBadGateway, body)
			return
		}
		respondError(c, "Summary", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}
