package integrations

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/VatsalPandya47/taskmind/internal/models"
)

// Board is an open Trello board
type Board struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Desc    string `json:"desc,omitempty"`
	URL     string `json:"url"`
	Starred bool   `json:"starred"`
	Closed  bool   `json:"closed"`
}

// List is a column on a Trello board
type List struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Pos     float64 `json:"pos"`
	Closed  bool    `json:"closed"`
	IDBoard string  `json:"idBoard"`
}

// Card is a created Trello card
type Card struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	ShortURL string `json:"shortUrl"`
	IDList   string `json:"idList"`
}

// CardInput are the fields of a new card
type CardInput struct {
	ListID string
	Name   string
	Desc   string
	Due    string
}

// trelloAuth uses Trello's OAuth header so tokens stay out of request URLs
func (c *Client) trelloAuth(token string) http.Header {
	return http.Header{"Authorization": {
		fmt.Sprintf(`OAuth oauth_consumer_key="%s", oauth_token="%s"`, c.trelloAPIKey, token),
	}}
}

// ListBoards returns open boards, starred first, then by name
func (c *Client) ListBoards(ctx context.Context, token string) ([]Board, error) {
	q := url.Values{}
	q.Set("filter", "open")
	q.Set("fields", "name,desc,url,starred,closed")

	var boards []Board
	err := c.do(ctx, call{
		provider:  models.ProviderTrello,
		operation: "boards.list",
		method:    http.MethodGet,
		url:       c.endpoints.Trello + "/members/me/boards?" + q.Encode(),
		header:    c.trelloAuth(token),
	}, &boards)
	if err != nil {
		return nil, err
	}
	return SortBoards(boards), nil
}

// SortBoards drops closed boards and orders starred boards first, then by name
func SortBoards(boards []Board) []Board {
	out := make([]Board, 0, len(boards))
	for _, b := range boards {
		if !b.Closed {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Starred != out[j].Starred {
			return out[i].Starred
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// ListLists returns the open lists of a board ordered by position
func (c *Client) ListLists(ctx context.Context, token, boardID string) ([]List, error) {
	if boardID == "" {
		return nil, ErrInvalidInput
	}

	var lists []List
	err := c.do(ctx, call{
		provider:  models.ProviderTrello,
		operation: "lists.list",
		method:    http.MethodGet,
		url: c.endpoints.Trello + "/boards/" + url.PathEscape(boardID) +
			"/lists?filter=open&fields=name,pos,closed,idBoard",
		header: c.trelloAuth(token),
	}, &lists)
	if err != nil {
		return nil, err
	}
	return SortLists(lists), nil
}

// SortLists drops closed lists and orders by position
func SortLists(lists []List) []List {
	out := make([]List, 0, len(lists))
	for _, l := range lists {
		if !l.Closed {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Pos < out[j].Pos
	})
	return out
}

// CreateCard adds a card at the bottom of a list
func (c *Client) CreateCard(ctx context.Context, token string, in CardInput) (*Card, error) {
	if in.ListID == "" || in.Name == "" {
		return nil, ErrInvalidInput
	}

	body := map[string]any{
		"idList": in.ListID,
		"name":   in.Name,
		"pos":    "bottom",
	}
	if in.Desc != "" {
		body["desc"] = in.Desc
	}
	if in.Due != "" {
		body["due"] = in.Due
	}

	var card Card
	err := c.do(ctx, call{
		provider:  models.ProviderTrello,
		operation: "cards.create",
		method:    http.MethodPost,
		url:       c.endpoints.Trello + "/cards",
		header:    c.trelloAuth(token),
		body:      body,
	}, &card)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// TrelloIdentify returns the member a token belongs to
func (c *Client) TrelloIdentify(ctx context.Context, token string) (*Identity, error) {
	var member struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	}
	err := c.do(ctx, call{
		provider:  models.ProviderTrello,
		operation: "members.me",
		method:    http.MethodGet,
		url:       c.endpoints.Trello + "/members/me?fields=id,username,fullName,email",
		header:    c.trelloAuth(token),
	}, &member)
	if err != nil {
		return nil, err
	}

	name := member.FullName
	if name == "" {
		name = member.Username
	}
	return &Identity{ID: member.ID, Name: name, Email: member.Email}, nil
}
