package integrations

import (
	"context"
	"net/http"
	"net/url"

	"github.com/VatsalPandya47/taskmind/internal/models"
)

// Meeting is a scheduled Zoom meeting
type Meeting struct {
	ID        int64  `json:"id"`
	UUID      string `json:"uuid"`
	Topic     string `json:"topic"`
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration"`
	Timezone  string `json:"timezone,omitempty"`
	JoinURL   string `json:"join_url"`
	Type      int    `json:"type"`
}

// Zoom meeting list types
var meetingTypes = map[string]bool{
	"scheduled":         true,
	"live":              true,
	"upcoming":          true,
	"upcoming_meetings": true,
	"previous_meetings": true,
}

// ListMeetings returns the user's meetings of the given type (default upcoming)
func (c *Client) ListMeetings(ctx context.Context, token, meetingType string) ([]Meeting, error) {
	if meetingType == "" {
		meetingType = "upcoming"
	}
	if !meetingTypes[meetingType] {
		return nil, ErrInvalidInput
	}

	q := url.Values{}
	q.Set("type", meetingType)
	q.Set("page_size", "100")

	var resp struct {
		Meetings []Meeting `json:"meetings"`
	}
	err := c.do(ctx, call{
		provider:  models.ProviderZoom,
		operation: "meetings.list",
		method:    http.MethodGet,
		url:       c.endpoints.Zoom + "/users/me/meetings?" + q.Encode(),
		header:    bearer(token),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Meetings == nil {
		resp.Meetings = []Meeting{}
	}
	return resp.Meetings, nil
}

// ZoomIdentify returns the user a token belongs to
func (c *Client) ZoomIdentify(ctx context.Context, token string) (*Identity, error) {
	var user struct {
		ID        string `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		AccountID string `json:"account_id"`
	}
	err := c.do(ctx, call{
		provider:  models.ProviderZoom,
		operation: "users.me",
		method:    http.MethodGet,
		url:       c.endpoints.Zoom + "/users/me",
		header:    bearer(token),
	}, &user)
	if err != nil {
		return nil, err
	}

	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	return &Identity{ID: user.ID, Name: firstNonEmpty(user.Email, name), Email: user.Email}, nil
}
