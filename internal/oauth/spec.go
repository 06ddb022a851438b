package oauth

import (
	"github.com/VatsalPandya47/taskmind/internal/models"

	"golang.org/x/oauth2"
)

// Flow is how a provider hands back a credential
type Flow int

const (
	// FlowAuthCode redirects back with ?code= which is exchanged server-side
	FlowAuthCode Flow = iota
	// FlowImplicitToken returns the token in the URL fragment to the browser
	FlowImplicitToken
)

// providerSpec is the static metadata of one integration
type providerSpec struct {
	Name        string
	DisplayName string
	Endpoint    oauth2.Endpoint
	Flow        Flow
	// ScopeSeparator joins scopes into one parameter when the provider
	// does not accept the standard space separator.
	ScopeSeparator string
	Refreshable    bool
}

// specs lists every supported provider in display order
var specs = []providerSpec{
	{
		Name:        models.ProviderSlack,
		DisplayName: "Slack",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://slack.com/oauth/v2/authorize",
			TokenURL:  "https://slack.com/api/oauth.v2.access",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		ScopeSeparator: ",",
	},
	{
		Name:        models.ProviderTrello,
		DisplayName: "Trello",
		Endpoint: oauth2.Endpoint{
			AuthURL: "https://trello.com/1/authorize",
		},
		Flow:           FlowImplicitToken,
		ScopeSeparator: ",",
	},
	{
		Name:        models.ProviderAsana,
		DisplayName: "Asana",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://app.asana.com/-/oauth_authorize",
			TokenURL:  "https://app.asana.com/-/oauth_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Refreshable: true,
	},
	{
		Name:        models.ProviderMonday,
		DisplayName: "Monday.com",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://auth.monday.com/oauth2/authorize",
			TokenURL:  "https://auth.monday.com/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	},
	{
		Name:        models.ProviderGoogle,
		DisplayName: "Google Calendar",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL:  "https://oauth2.googleapis.com/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Refreshable: true,
	},
	{
		Name:        models.ProviderZoom,
		DisplayName: "Zoom",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://zoom.us/oauth/authorize",
			TokenURL:  "https://zoom.us/oauth/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		Refreshable: true,
	},
}
