package integrations

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/VatsalPandya47/taskmind/internal/models"
)

// Workspace is an Asana workspace or organization
type Workspace struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// Project is an Asana project
type Project struct {
	GID      string `json:"gid"`
	Name     string `json:"name"`
	Archived bool   `json:"archived"`
}

// Task is a created Asana task
type Task struct {
	GID          string `json:"gid"`
	Name         string `json:"name"`
	PermalinkURL string `json:"permalink_url"`
}

// TaskInput are the fields of a new task
type TaskInput struct {
	WorkspaceID string
	ProjectID   string
	Name        string
	Notes       string
	DueOn       string // YYYY-MM-DD
}

// ListWorkspaces returns the workspaces visible to token
func (c *Client) ListWorkspaces(ctx context.Context, token string) ([]Workspace, error) {
	var resp struct {
		Data []Workspace `json:"data"`
	}
	err := c.do(ctx, call{
		provider:  models.ProviderAsana,
		operation: "workspaces.list",
		method:    http.MethodGet,
		url:       c.endpoints.Asana + "/workspaces?limit=100",
		header:    bearer(token),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListProjects returns the non-archived projects of a workspace sorted by name
func (c *Client) ListProjects(ctx context.Context, token, workspaceID string) ([]Project, error) {
	if workspaceID == "" {
		return nil, ErrInvalidInput
	}

	q := url.Values{}
	q.Set("archived", "false")
	q.Set("opt_fields", "name,archived")
	q.Set("limit", "100")

	var resp struct {
		Data []Project `json:"data"`
	}
	err := c.do(ctx, call{
		provider:  models.ProviderAsana,
		operation: "projects.list",
		method:    http.MethodGet,
		url: c.endpoints.Asana + "/workspaces/" + url.PathEscape(workspaceID) +
			"/projects?" + q.Encode(),
		header: bearer(token),
	}, &resp)
	if err != nil {
		return nil, err
	}

	projects := make([]Project, 0, len(resp.Data))
	for _, p := range resp.Data {
		if !p.Archived {
			projects = append(projects, p)
		}
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return strings.ToLower(projects[i].Name) < strings.ToLower(projects[j].Name)
	})
	return projects, nil
}

// CreateTask creates a task in a workspace, optionally inside a project
func (c *Client) CreateTask(ctx context.Context, token string, in TaskInput) (*Task, error) {
	if in.WorkspaceID == "" || in.Name == "" {
		return nil, ErrInvalidInput
	}

	data := map[string]any{
		"workspace": in.WorkspaceID,
		"name":      in.Name,
	}
	if in.ProjectID != "" {
		data["projects"] = []string{in.ProjectID}
	}
	if in.Notes != "" {
		data["notes"] = in.Notes
	}
	if in.DueOn != "" {
		data["due_on"] = in.DueOn
	}

	var resp struct {
		Data Task `json:"data"`
	}
	err := c.do(ctx, call{
		provider:  models.ProviderAsana,
		operation: "tasks.create",
		method:    http.MethodPost,
		url:       c.endpoints.Asana + "/tasks",
		header:    bearer(token),
		body:      map[string]any{"data": data},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// AsanaIdentify returns the user a token belongs to
func (c *Client) AsanaIdentify(ctx context.Context, token string) (*Identity, error) {
	var resp struct {
		Data struct {
			GID   string `json:"gid"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"data"`
	}
	err := c.do(ctx, call{
		provider:  models.ProviderAsana,
		operation: "users.me",
		method:    http.MethodGet,
		url:       c.endpoints.Asana + "/users/me",
		header:    bearer(token),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &Identity{ID: resp.Data.GID, Name: resp.Data.Name, Email: resp.Data.Email}, nil
}
