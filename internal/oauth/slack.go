package oauth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/VatsalPandya47/taskmind/internal/models"

	"golang.org/x/oauth2"
)

// slackOKTransport turns Slack's HTTP 200 {"ok":false} replies into HTTP 400
// so x/oauth2 reports them as *oauth2.RetrieveError with the Slack error code.
// A user-only install has no top-level access_token; the user token is lifted
// into place so the exchange still yields a credential.
type slackOKTransport struct {
	base http.RoundTripper
}

func slackHTTPClient(base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	client := *base
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	client.Transport = &slackOKTransport{base: transport}
	return &client
}

type slackEnvelope struct {
	OK          bool   `json:"ok"`
	Error       string `json:"error"`
	AccessToken string `json:"access_token"`
	AuthedUser  struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
		TokenType   string `json:"token_type"`
	} `json:"authed_user"`
}

func (t *slackOKTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}

	var env slackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return resp, nil
	}

	switch {
	case !env.OK:
		if env.Error == "" {
			env.Error = "unknown_error"
		}
		body, _ = json.Marshal(map[string]string{"error": env.Error})
		resp.StatusCode = http.StatusBadRequest
		resp.Status = "400 Bad Request"
	case env.AccessToken == "" && env.AuthedUser.AccessToken != "":
		var raw map[string]any
		if err := json.Unmarshal(body, &raw); err == nil {
			raw["access_token"] = env.AuthedUser.AccessToken
			raw["token_type"] = env.AuthedUser.TokenType
			raw["scope"] = env.AuthedUser.Scope
			body, _ = json.Marshal(raw)
		}
	}

	resp.Header.Set("Content-Type", "application/json")
	resp.ContentLength = int64(len(body))
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// applySlackExtras copies team and bot details out of the token response
func applySlackExtras(grant *Grant, tok *oauth2.Token) {
	if team, ok := tok.Extra("team").(map[string]any); ok {
		if id, ok := team["id"].(string); ok {
			grant.ExternalAccountID = id
			grant.Metadata[models.MetaTeamID] = id
		}
		if name, ok := team["name"].(string); ok {
			grant.ExternalAccountName = name
			grant.Metadata[models.MetaTeamName] = name
		}
	}
	if botUserID, ok := tok.Extra("bot_user_id").(string); ok && botUserID != "" {
		grant.Metadata[models.MetaBotUserID] = botUserID
	}
}

// applyAsanaExtras reads the user block Asana embeds in its token response
func applyAsanaExtras(grant *Grant, tok *oauth2.Token) {
	data, ok := tok.Extra("data").(map[string]any)
	if !ok {
		return
	}
	if gid, ok := data["gid"].(string); ok {
		grant.ExternalAccountID = gid
	}
	if name, ok := data["name"].(string); ok {
		grant.ExternalAccountName = name
	}
	if email, ok := data["email"].(string); ok && email != "" {
		grant.Metadata[models.MetaAccountEmail] = email
	}
}
