package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/VatsalPandya47/taskmind/internal/integrations"
	"github.com/VatsalPandya47/taskmind/internal/services"

	"github.com/gin-gonic/gin"
)

// Error codes returned in the "error" field of JSON responses
const (
	errUnsupportedProvider = "unsupported_provider"
	errConfiguration       = "configuration_error"
	errInvalidRequest      = "invalid_request"
	errNotConnected        = "not_connected"
	errNotFound            = "not_found"
	errUpstream            = "upstream_error"
	errDatabase            = "database_error"
	errServer              = "server_error"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings is checked in order with errors.Is
var errorMappings = []errorMapping{
	{services.ErrUnsupportedProvider, http.StatusNotFound, errUnsupportedProvider},

	{services.ErrProviderNotConfigured, http.StatusInternalServerError, errConfiguration},
	{services.ErrSlackBotNotConfigured, http.StatusInternalServerError, errConfiguration},
	{services.ErrNoDefaultChannel, http.StatusInternalServerError, errConfiguration},

	{services.ErrNotConnected, http.StatusBadRequest, errNotConnected},
	{services.ErrSummaryNotFound, http.StatusNotFound, errNotFound},

	{services.ErrMissingReturnURL, http.StatusBadRequest, errInvalidRequest},
	{services.ErrInvalidReturnURL, http.StatusBadRequest, errInvalidRequest},
	{services.ErrInvalidState, http.StatusBadRequest, errInvalidRequest},
	{services.ErrMissingToken, http.StatusBadRequest, errInvalidRequest},
	{services.ErrProviderTokenRejected, http.StatusBadRequest, errInvalidRequest},
	{services.ErrEmptyMessage, http.StatusBadRequest, errInvalidRequest},
	{services.ErrNoChannel, http.StatusBadRequest, errInvalidRequest},
	{services.ErrInvalidSummary, http.StatusBadRequest, errInvalidRequest},
	{services.ErrNoActionItems, http.StatusBadRequest, errInvalidRequest},
	{services.ErrInvalidSyncTarget, http.StatusBadRequest, errInvalidRequest},
	{integrations.ErrInvalidInput, http.StatusBadRequest, errInvalidRequest},

	{services.ErrDatabase, http.StatusInternalServerError, errDatabase},
}

// respondError writes the JSON error body for err. Upstream failures become
// 502 with the provider's status and body attached.
func respondError(c *gin.Context, component string, err error) {
	var upErr *integrations.UpstreamError
	if errors.As(err, &upErr) {
		log.Printf("[%s] %v", component, upErr)
		c.JSON(http.StatusBadGateway, upstreamBody(upErr))
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			// Wrapped detail is only shown for client errors
			description := err.Error()
			if m.status >= http.StatusInternalServerError {
				log.Printf("[%s] %v", component, err)
				description = m.err.Error()
			}
			c.JSON(m.status, gin.H{"error": m.code, "error_description": description})
			return
		}
	}

	log.Printf("[%s] Unexpected error: %v", component, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":             errServer,
		"error_description": "Internal server error",
	})
}

// badRequest rejects a malformed request body or query
func badRequest(c *gin.Context, description string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":             errInvalidRequest,
		"error_description": description,
	})
}

func upstreamBody(upErr *integrations.UpstreamError) gin.H {
	body := gin.H{
		"error":             errUpstream,
		"error_description": upErr.Error(),
		"provider":          upErr.Provider,
		"upstream_status":   upErr.Status,
		"upstream_body":     upErr.Body,
	}
	if upErr.Code != "" {
		body["upstream_error"] = upErr.Code
	}
	return body
}
