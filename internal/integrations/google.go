package integrations

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/models"
)

// EventTime is either a timed instant or an all-day date
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Event is a Google Calendar event on the primary calendar
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	HTMLLink    string    `json:"htmlLink,omitempty"`
	HangoutLink string    `json:"hangoutLink,omitempty"`
	Status      string    `json:"status"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
}

// EventQuery bounds a calendar listing
type EventQuery struct {
	TimeMin    time.Time
	TimeMax    time.Time
	MaxResults int
}

// defaultEventResults applies when the caller gives no limit
const (
	defaultEventResults = 25
	maxEventResults     = 250
)

// ListEvents returns single events on the primary calendar ordered by start time.
// TimeMin defaults to now.
func (c *Client) ListEvents(ctx context.Context, token string, query EventQuery) ([]Event, error) {
	if query.TimeMin.IsZero() {
		query.TimeMin = time.Now()
	}
	if query.MaxResults <= 0 {
		query.MaxResults = defaultEventResults
	}
	if query.MaxResults > maxEventResults {
		query.MaxResults = maxEventResults
	}

	q := url.Values{}
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	q.Set("timeMin", query.TimeMin.UTC().Format(time.RFC3339))
	if !query.TimeMax.IsZero() {
		q.Set("timeMax", query.TimeMax.UTC().Format(time.RFC3339))
	}
	q.Set("maxResults", strconv.Itoa(query.MaxResults))

	var resp struct {
		Items []Event `json:"items"`
	}
	err := c.do(ctx, call{
		provider:  models.ProviderGoogle,
		operation: "events.list",
		method:    http.MethodGet,
		url:       c.endpoints.Google + "/calendar/v3/calendars/primary/events?" + q.Encode(),
		header:    bearer(token),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Items == nil {
		resp.Items = []Event{}
	}
	return resp.Items, nil
}

// GoogleIdentify returns the account behind token from the userinfo endpoint
func (c *Client) GoogleIdentify(ctx context.Context, token string) (*Identity, error) {
	var info struct {
		Sub   string `json:"sub"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	err := c.do(ctx, call{
		provider:  models.ProviderGoogle,
		operation: "userinfo",
		method:    http.MethodGet,
		url:       c.endpoints.Google + "/oauth2/v3/userinfo",
		header:    bearer(token),
	}, &info)
	if err != nil {
		return nil, err
	}
	return &Identity{ID: info.Sub, Name: firstNonEmpty(info.Email, info.Name), Email: info.Email}, nil
}
