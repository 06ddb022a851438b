package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/VatsalPandya47/taskmind/internal/models"
	"github.com/VatsalPandya47/taskmind/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// IntegrationHandler serves the OAuth connect flow and connection management
type IntegrationHandler struct {
	connections *services.ConnectionService
}

func NewIntegrationHandler(connections *services.ConnectionService) *IntegrationHandler {
	return &IntegrationHandler{connections: connections}
}

// stateSessionKey keeps one pending state per provider in the browser session
func stateSessionKey(provider string) string {
	return "oauth_state:" + provider
}

// callerID returns the user id RequireCaller placed on the context
func callerID(c *gin.Context) string {
	if caller := models.GetCallerFromContext(c); caller != nil {
		return caller.UserID
	}
	return ""
}

// Authorize godoc
//
//	@Summary		Start an integration connect flow
//	@Description	Returns the provider consent URL and binds the state to the browser session
//	@Tags			Integrations
//	@Produce		json
//	@Param			provider	path		string	true	"Provider name"
//	@Param			return_url	query		string	true	"Dashboard URL to land on afterwards"
//	@Success		200			{object}	services.AuthorizeResult
//	@Failure		400			{object}	object{error=string,error_description=string}
//	@Failure		404			{object}	object{error=string,error_description=string}
//	@Failure		500			{object}	object{error=string,error_description=string}
//	@Security		BearerAuth
//	@Router			/api/integrations/{provider}/authorize [get]
func (h *IntegrationHandler) Authorize(c *gin.Context) {
	result, err := h.connections.Authorize(
		c.Request.Context(),
		callerID(c),
		c.Param("provider"),
		c.Query("return_url"),
	)
	if err != nil {
		respondError(c, "OAuth", err)
		return
	}

	session := sessions.Default(c)
	session.Set(stateSessionKey(result.Provider), result.State)
	if err := session.Save(); err != nil {
		log.Printf("[OAuth] Failed to save session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             errServer,
			"error_description": "Failed to save session",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Callback returns the redirect handler for provider. Every outcome is a
// redirect back to the dashboard; the pending state is cleared from the
// session whether or not it matches.
func (h *IntegrationHandler) Callback(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		key := stateSessionKey(provider)
		sessionState, _ := session.Get(key).(string)
		if sessionState != "" {
			session.Delete(key)
			if err := session.Save(); err != nil {
				log.Printf("[OAuth] Failed to clear session state: %v", err)
			}
		}

		target := h.connections.HandleCallback(c.Request.Context(), services.CallbackParams{
			Provider:         provider,
			State:            c.Query("state"),
			SessionState:     sessionState,
			Code:             c.Query("code"),
			Error:            c.Query("error"),
			ErrorDescription: c.Query("error_description"),
		})
		c.Redirect(http.StatusFound, target)
	}
}

type captureTokenRequest struct {
	Token string `json:"token"`
	State string `json:"state"`
}

// CaptureToken godoc
//
//	@Summary		Store a token issued in the URL fragment
//	@Description	Used by implicit-flow providers (Trello). The state must belong to the caller.
//	@Tags			Integrations
//	@Accept			json
//	@Produce		json
//	@Param			provider	path		string								true	"Provider name"
//	@Param			body		body		object{token=string,state=string}	true	"Token and state"
//	@Success		200			{object}	models.ProviderToken
//	@Failure		400			{object}	object{error=string,error_description=string}
//	@Security		BearerAuth
//	@Router			/api/integrations/{provider}/token [post]
func (h *IntegrationHandler) CaptureToken(c *gin.Context) {
	var req captureTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be JSON with token and state")
		return
	}

	row, err := h.connections.CaptureToken(
		c.Request.Context(),
		callerID(c),
		c.Param("provider"),
		req.Token,
		req.State,
	)
	if err != nil {
		respondError(c, "OAuth", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "integration": row})
}

// List godoc
//
//	@Summary	List integrations and their connection status
//	@Tags		Integrations
//	@Produce	json
//	@Success	200	{object}	object{integrations=[]services.IntegrationStatus}
//	@Security	BearerAuth
//	@Router		/api/integrations [get]
func (h *IntegrationHandler) List(c *gin.Context) {
	statuses, err := h.connections.Status(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, "Integrations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"integrations": statuses})
}

// Disconnect removes the caller's connection to a provider
func (h *IntegrationHandler) Disconnect(c *gin.Context) {
	err := h.connections.Disconnect(c.Request.Context(), callerID(c), c.Param("provider"))
	if errors.Is(err, services.ErrNotConnected) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             errNotConnected,
			"error_description": err.Error(),
		})
		return
	}
	if err != nil {
		respondError(c, "Integrations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "provider": c.Param("provider")})
}

type selectChannelRequest struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
}

// SelectSlackChannel stores the default channel for the caller's Slack connection
func (h *IntegrationHandler) SelectSlackChannel(c *gin.Context) {
	var req selectChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be JSON with channel_id")
		return
	}

	metadata, err := h.connections.SelectChannel(
		c.Request.Context(),
		callerID(c),
		req.ChannelID,
		req.ChannelName,
	)
	if err != nil {
		respondError(c, "Slack", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "metadata": metadata})
}
