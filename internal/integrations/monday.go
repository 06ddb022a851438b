package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/VatsalPandya47/taskmind/internal/models"
)

// MondayBoard is an active Monday.com board
type MondayBoard struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	BoardKind string `json:"board_kind"`
}

// MondayItem is a created board item
type MondayItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ItemInput are the fields of a new item
type ItemInput struct {
	BoardID string
	GroupID string
	Name    string
}

type graphQLError struct {
	Message string `json:"message"`
}

// graphql posts a query and decodes data into out. GraphQL errors arrive
// with HTTP 200 and are surfaced as *UpstreamError.
func (c *Client) graphql(
	ctx context.Context,
	token, operation, query string,
	variables map[string]any,
	out any,
) error {
	body := map[string]any{"query": query}
	if len(variables) > 0 {
		body["variables"] = variables
	}

	var resp struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
		// Complexity and auth failures use this shape instead
		ErrorMessage string `json:"error_message"`
	}
	err := c.do(ctx, call{
		provider:  models.ProviderMonday,
		operation: operation,
		method:    http.MethodPost,
		url:       c.endpoints.Monday,
		// Monday expects the raw token, without the Bearer scheme
		header: http.Header{"Authorization": {token}, "API-Version": {"2024-01"}},
		body:   body,
	}, &resp)
	if err != nil {
		return err
	}

	if len(resp.Errors) > 0 || resp.ErrorMessage != "" {
		msg := resp.ErrorMessage
		if len(resp.Errors) > 0 {
			msg = resp.Errors[0].Message
		}
		return &UpstreamError{
			Provider:  models.ProviderMonday,
			Operation: operation,
			Status:    http.StatusOK,
			Code:      msg,
		}
	}

	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Data, out)
}

// ListMondayBoards returns active boards sorted by name
func (c *Client) ListMondayBoards(ctx context.Context, token string) ([]MondayBoard, error) {
	var data struct {
		Boards []MondayBoard `json:"boards"`
	}
	err := c.graphql(ctx, token, "boards.list",
		`query { boards(limit: 100, state: active) { id name state board_kind } }`,
		nil, &data)
	if err != nil {
		return nil, err
	}

	boards := make([]MondayBoard, 0, len(data.Boards))
	for _, b := range data.Boards {
		if b.State == "" || b.State == "active" {
			boards = append(boards, b)
		}
	}
	sort.SliceStable(boards, func(i, j int) bool {
		return strings.ToLower(boards[i].Name) < strings.ToLower(boards[j].Name)
	})
	return boards, nil
}

// CreateMondayItem creates an item on a board, optionally in a group
func (c *Client) CreateMondayItem(ctx context.Context, token string, in ItemInput) (*MondayItem, error) {
	if in.BoardID == "" || in.Name == "" {
		return nil, ErrInvalidInput
	}

	vars := map[string]any{
		"board": in.BoardID,
		"name":  in.Name,
	}
	query := `mutation ($board: ID!, $name: String!) {
  create_item(board_id: $board, item_name: $name) { id name }
}`
	if in.GroupID != "" {
		vars["group"] = in.GroupID
		query = `mutation ($board: ID!, $group: String!, $name: String!) {
  create_item(board_id: $board, group_id: $group, item_name: $name) { id name }
}`
	}

	var data struct {
		CreateItem MondayItem `json:"create_item"`
	}
	if err := c.graphql(ctx, token, "items.create", query, vars, &data); err != nil {
		return nil, err
	}
	return &data.CreateItem, nil
}

// MondayIdentify returns the user and account a token belongs to
func (c *Client) MondayIdentify(ctx context.Context, token string) (*Identity, error) {
	var data struct {
		Me struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Email   string `json:"email"`
			Account struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"account"`
		} `json:"me"`
	}
	err := c.graphql(ctx, token, "me",
		`query { me { id name email account { id name } } }`, nil, &data)
	if err != nil {
		return nil, err
	}

	id := firstNonEmpty(data.Me.Account.ID, data.Me.ID)
	name := firstNonEmpty(data.Me.Account.Name, data.Me.Name)
	return &Identity{ID: id, Name: name, Email: data.Me.Email}, nil
}

// firstNonEmpty returns the first non-empty value
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
