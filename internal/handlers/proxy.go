package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/integrations"
	"github.com/VatsalPandya47/taskmind/internal/services"

	"github.com/gin-gonic/gin"
)

// ProxyHandler exposes provider API calls made with the caller's stored token
type ProxyHandler struct {
	actions *services.ActionService
}

func NewProxyHandler(actions *services.ActionService) *ProxyHandler {
	return &ProxyHandler{actions: actions}
}

// Slack

// SlackChannels godoc
//
//	@Summary	List public Slack channels
//	@Tags		Slack
//	@Produce	json
//	@Success	200	{object}	object{channels=[]integrations.Channel}
//	@Failure	400	{object}	object{error=string,error_description=string}
//	@Failure	502	{object}	object{error=string,upstream_status=int,upstream_body=string}
//	@Security	BearerAuth
//	@Router		/api/slack/channels [get]
func (h *ProxyHandler) SlackChannels(c *gin.Context) {
	channels, err := h.actions.SlackChannels(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, "Slack", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

type slackMessageRequest struct {
	Text    string `json:"text"`
	Channel string `json:"channel"`
}

// PostSlackMessage posts as the caller to a channel or their selected channel
func (h *ProxyHandler) PostSlackMessage(c *gin.Context) {
	var req slackMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be JSON with text")
		return
	}

	msg, err := h.actions.PostSlackMessage(c.Request.Context(), callerID(c), req.Channel, req.Text)
	if err != nil {
		respondError(c, "Slack", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// Trello

func (h *ProxyHandler) TrelloBoards(c *gin.Context) {
	boards, err := h.actions.TrelloBoards(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, "Trello", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"boards": boards})
}

func (h *ProxyHandler) TrelloLists(c *gin.Context) {
	lists, err := h.actions.TrelloLists(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, "Trello", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lists": lists})
}

type trelloCardRequest struct {
	ListID string `json:"list_id"`
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	Due    string `json:"due"`
}

func (h *ProxyHandler) CreateTrelloCard(c *gin.Context) {
	var req trelloCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be JSON with list_id and name")
		return
	}

	card, err := h.actions.CreateTrelloCard(c.Request.Context(), callerID(c), integrations.CardInput{
		ListID: req.ListID,
		Name:   req.Name,
		Desc:   req.Desc,
		Due:    req.Due,
	})
	if err != nil {
		respondError(c, "Trello", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"card": card})
}

// Asana

func (h *ProxyHandler) AsanaWorkspaces(c *gin.Context) {
	workspaces, err := h.actions.AsanaWorkspaces(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, "Asana", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspaces": workspaces})
}

func (h *ProxyHandler) AsanaProjects(c *gin.Context) {
	projects, err := h.actions.AsanaProjects(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, "Asana", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

type asanaTaskRequest struct {
	WorkspaceID string `json:"workspace_id"`
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Notes       string `json:"notes"`
	DueOn       string `json:"due_on"`
}

func (h *ProxyHandler) CreateAsanaTask(c *gin.Context) {
	var req asanaTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be JSON with workspace_id and name")
		return
	}

	task, err := h.actions.CreateAsanaTask(c.Request.Context(), callerID(c), integrations.TaskInput{
		WorkspaceID: req.WorkspaceID,
		ProjectID:   req.ProjectID,
		Name:        req.Name,
		Notes:       req.Notes,
		DueOn:       req.DueOn,
	})
	if err != nil {
		respondError(c, "Asana", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

// Monday

func (h *ProxyHandler) MondayBoards(c *gin.Context) {
	boards, err := h.actions.MondayBoards(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, "Monday", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"boards": boards})
}

type mondayItemRequest struct {
	BoardID string `json:"board_id"`
	GroupID string `json:"group_id"`
	Name    string `json:"name"`
}

func (h *ProxyHandler) CreateMondayItem(c *gin.Context) {
	var req mondayItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be JSON with board_id and name")
		return
	}

	item, err := h.actions.CreateMondayItem(c.Request.Context(), callerID(c), integrations.ItemInput{
		BoardID: req.BoardID,
		GroupID: req.GroupID,
		Name:    req.Name,
	})
	if err != nil {
		respondError(c, "Monday", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// Google Calendar

// GoogleEvents godoc
//
//	@Summary	List events on the caller's primary calendar
//	@Tags		Google
//	@Produce	json
//	@Param		time_min	query		string	false	"RFC3339 lower bound"
//	@Param		time_max	query		string	false	"RFC3339 upper bound"
//	@Param		max_results	query		int		false	"Maximum events (default 25, max 250)"
//	@Success	200			{object}	object{events=[]integrations.Event}
//	@Security	BearerAuth
//	@Router		/api/google/events [get]
func (h *ProxyHandler) GoogleEvents(c *gin.Context) {
	var query integrations.EventQuery
	for name, dst := range map[string]*time.Time{
		"time_min": &query.TimeMin,
		"time_max": &query.TimeMax,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, name+" must be an RFC3339 timestamp")
			return
		}
		*dst = t
	}
	if raw := c.Query("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, "max_results must be a positive integer")
			return
		}
		query.MaxResults = n
	}

	events, err := h.actions.GoogleEvents(c.Request.Context(), callerID(c), query)
	if err != nil {
		respondError(c, "Google", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Zoom

func (h *ProxyHandler) ZoomMeetings(c *gin.Context) {
	meetings, err := h.actions.ZoomMeetings(c.Request.Context(), callerID(c), c.Query("type"))
	if err != nil {
		respondError(c, "Zoom", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}
