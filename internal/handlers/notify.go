package handlers

import (
	"net/http"

	"github.com/VatsalPandya47/taskmind/internal/services"

	"github.com/gin-gonic/gin"
)

// NotifyHandler sends server-initiated Slack messages
type NotifyHandler struct {
	notify *services.NotifyService
}

func NewNotifyHandler(notify *services.NotifyService) *NotifyHandler {
	return &NotifyHandler{notify: notify}
}

type notifyRequest struct {
	Message string `json:"message"`
	Channel string `json:"channel"`
}

// NotifySlack godoc
//
//	@Summary		Post a notification with the server's Slack bot
//	@Description	Falls back to SLACK_DEFAULT_CHANNEL_ID when no channel is given
//	@Tags			Slack
//	@Accept			json
//	@Produce		json
//	@Param			body	body		object{message=string,channel=string}	true	"Notification"
//	@Success		200		{object}	object{success=bool,channel=string,ts=string}
//	@Failure		400		{object}	object{error=string,error_description=string}
//	@Failure		500		{object}	object{error=string,error_description=string}
//	@Failure		502		{object}	object{error=string,upstream_error=string}
//	@Security		BearerAuth
//	@Router			/api/notify/slack [post]
func (h *NotifyHandler) NotifySlack(c *gin.Context) {
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be JSON with message")
		return
	}

	msg, err := h.notify.NotifySlack(c.Request.Context(), req.Message, req.Channel)
	if err != nil {
		respondError(c, "Slack", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "channel": msg.Channel, "ts": msg.TS})
}
