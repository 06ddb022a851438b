package integrations

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/VatsalPandya47/taskmind/internal/models"
)

// Channel is a Slack conversation a message can be posted to
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPrivate  bool   `json:"is_private"`
	IsArchived bool   `json:"is_archived"`
	IsMember   bool   `json:"is_member"`
	NumMembers int    `json:"num_members"`
}

// SlackMessage is the result of chat.postMessage
type SlackMessage struct {
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (r slackResponse) check(operation string) error {
	if r.OK {
		return nil
	}
	return &UpstreamError{
		Provider:  models.ProviderSlack,
		Operation: operation,
		Status:    http.StatusOK,
		Code:      r.Error,
	}
}

// maxChannelPages bounds conversations.list pagination
const maxChannelPages = 10

// ListChannels returns non-archived public channels sorted by name
func (c *Client) ListChannels(ctx context.Context, token string) ([]Channel, error) {
	var channels []Channel
	cursor := ""

	for page := 0; page < maxChannelPages; page++ {
		q := url.Values{}
		q.Set("types", "public_channel")
		q.Set("exclude_archived", "true")
		q.Set("limit", "200")
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var resp struct {
			slackResponse
			Channels []Channel `json:"channels"`
			Metadata struct {
				NextCursor string `json:"next_cursor"`
			} `json:"response_metadata"`
		}
		err := c.do(ctx, call{
			provider:  models.ProviderSlack,
			operation: "conversations.list",
			method:    http.MethodGet,
			url:       c.endpoints.Slack + "/conversations.list?" + q.Encode(),
			header:    bearer(token),
		}, &resp)
		if err != nil {
			return nil, err
		}
		if err := resp.check("conversations.list"); err != nil {
			return nil, err
		}

		channels = append(channels, resp.Channels...)
		cursor = resp.Metadata.NextCursor
		if cursor == "" {
			break
		}
	}

	return FilterPublicChannels(channels), nil
}

// FilterPublicChannels drops archived and private channels and sorts by name
func FilterPublicChannels(channels []Channel) []Channel {
	out := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if ch.IsArchived || ch.IsPrivate {
			continue
		}
		out = append(out, ch)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// PostMessage posts text to channel with token (user or bot)
func (c *Client) PostMessage(ctx context.Context, token, channel, text string) (*SlackMessage, error) {
	if channel == "" || text == "" {
		return nil, ErrInvalidInput
	}

	var resp struct {
		slackResponse
		SlackMessage
	}
	err := c.do(ctx, call{
		provider:  models.ProviderSlack,
		operation: "chat.postMessage",
		method:    http.MethodPost,
		url:       c.endpoints.Slack + "/chat.postMessage",
		header:    bearer(token),
		body: map[string]any{
			"channel": channel,
			"text":    text,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.check("chat.postMessage"); err != nil {
		return nil, err
	}
	return &resp.SlackMessage, nil
}

// SlackIdentify resolves the workspace and user behind token via auth.test
func (c *Client) SlackIdentify(ctx context.Context, token string) (*Identity, error) {
	var resp struct {
		slackResponse
		Team   string `json:"team"`
		TeamID string `json:"team_id"`
		UserID string `json:"user_id"`
		User   string `json:"user"`
	}
	err := c.do(ctx, call{
		provider:  models.ProviderSlack,
		operation: "auth.test",
		method:    http.MethodPost,
		url:       c.endpoints.Slack + "/auth.test",
		header:    bearer(token),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.check("auth.test"); err != nil {
		return nil, err
	}
	return &Identity{ID: resp.TeamID, Name: resp.Team}, nil
}
