package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
)

var (
	serverURL  string
	serviceKey string
	userToken  string
	userID     string
)

func init() {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	serverURL = strings.TrimRight(getEnv("SERVER_URL", "http://localhost:8080"), "/")
	serviceKey = getEnv("SERVICE_ROLE_KEY", "")
	userToken = getEnv("USER_TOKEN", "")
	userID = getEnv("USER_ID", "")

	if serviceKey == "" || userID == "" {
		fmt.Println("Error: SERVICE_ROLE_KEY and USER_ID must be set in .env or the environment.")
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	UpstreamStatus   int    `json:"upstream_status,omitempty"`
}

type actionItem struct {
	Text     string `json:"text"`
	Assignee string `json:"assignee,omitempty"`
}

type summary struct {
	ID           string       `json:"id"`
	MeetingTitle string       `json:"meeting_title"`
	ActionItems  []actionItem `json:"action_items"`
}

type syncResult struct {
	Provider string `json:"provider"`
	Total    int    `json:"total"`
	Created  int    `json:"created"`
}

func main() {
	title := flag.String("title", "Weekly sync", "Meeting title")
	provider := flag.String("provider", "", "Sync action items to this provider (slack, trello, asana, monday)")
	target := flag.String("target", "", "Destination id: list_id, workspace_id, board_id or channel_id")
	flag.Parse()

	items := flag.Args()
	if len(items) == 0 {
		fmt.Println("Usage: taskmind-cli [-title T] [-provider P -target ID] \"action item\" ...")
		os.Exit(1)
	}

	fmt.Printf("=== TaskMind Summary Push Demo ===\n\n")
	ctx := context.Background()

	// Step 1: Store the summary as the summarization function would
	fmt.Println("Step 1: Storing meeting summary...")
	s, err := ingest(ctx, *title, items)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Stored summary %s with %d action items\n\n", s.ID, len(s.ActionItems))

	if *provider == "" {
		return
	}
	if userToken == "" {
		fmt.Println("Error: USER_TOKEN is required to sync as the user.")
		os.Exit(1)
	}

	// Step 2: Push the action items as the user
	fmt.Printf("Step 2: Syncing to %s...\n", *provider)
	result, err := syncSummary(ctx, s.ID, *provider, *target)
	if result != nil {
		fmt.Printf("Created %d of %d\n", result.Created, result.Total)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func ingest(ctx context.Context, title string, items []string) (*summary, error) {
	actionItems := make([]actionItem, 0, len(items))
	for _, text := range items {
		actionItems = append(actionItems, actionItem{Text: text})
	}

	payload := map[string]any{
		"user_id":       userID,
		"meeting_title": title,
		"meeting_date":  time.Now().Format(time.DateOnly),
		"action_items":  actionItems,
	}

	req, err := newJSONRequest(ctx, http.MethodPost, serverURL+"/internal/summaries", payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", serviceKey)

	var out struct {
		Summary summary `json:"summary"`
	}
	if err := do(http.DefaultClient, req, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out.Summary, nil
}

func syncSummary(ctx context.Context, id, provider, target string) (*syncResult, error) {
	key := map[string]string{
		"slack":  "channel_id",
		"trello": "list_id",
		"asana":  "workspace_id",
		"monday": "board_id",
	}[provider]

	payload := map[string]any{"provider": provider, "target": map[string]string{}}
	if key != "" && target != "" {
		payload["target"] = map[string]string{key: target}
	}

	req, err := newJSONRequest(ctx, http.MethodPost, serverURL+"/api/summaries/"+id+"/sync", payload)
	if err != nil {
		return nil, err
	}

	// The dashboard session token authenticates the user
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: userToken,
		TokenType:   "Bearer",
	}))

	var out struct {
		Result *syncResult `json:"result"`
	}
	err = do(client, req, http.StatusOK, &out)
	return out.Result, err
}

func newJSONRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends req and decodes the body into out. Error bodies are decoded too,
// so a partial sync result is still reported.
func do(client *http.Client, req *http.Request, want int, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	_ = json.Unmarshal(raw, out)

	if resp.StatusCode != want {
		var errResp ErrorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			if errResp.UpstreamStatus != 0 {
				return fmt.Errorf("%s (provider status %d): %s",
					errResp.Error, errResp.UpstreamStatus, errResp.ErrorDescription)
			}
			return fmt.Errorf("%s: %s", errResp.Error, errResp.ErrorDescription)
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
