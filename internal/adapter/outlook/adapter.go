// Package outlook reads Outlook / Office 365 calendars through Microsoft Graph.
package outlook

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/charmbracelet/log"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// Scopes are requested by the auth flow and refreshed against here.
var Scopes = []string{
	"https://graph.microsoft.com/Calendars.Read",
	"https://graph.microsoft.com/User.Read",
	"offline_access",
}

const fallbackCalendarID = "default"

// OAuthConfig is the Microsoft identity platform config for a public client.
// An empty tenantID means "common".
func OAuthConfig(clientID, tenantID, redirectURL string) *oauth2.Config {
	if tenantID == "" {
		tenantID = "common"
	}
	return &oauth2.Config{
		ClientID:    clientID,
		Endpoint:    microsoft.AzureADEndpoint(tenantID),
		RedirectURL: redirectURL,
		Scopes:      Scopes,
	}
}

// graphCredential hands tokens from an oauth2 source to the Graph SDK.
type graphCredential struct {
	src oauth2.TokenSource
}

func (c graphCredential) GetToken(_ context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	tok, err := c.src.Token()
	if err != nil {
		return azcore.AccessToken{}, err
	}
	return azcore.AccessToken{Token: tok.AccessToken, ExpiresOn: tok.Expiry}, nil
}

// OutlookAdapter implements core.CalendarSource for Microsoft Graph.
type OutlookAdapter struct {
	id        string
	name      string
	clientID  string
	tenantID  string
	tokenFile string

	calendars map[string]string
	colors    map[string]string
	client    *msgraphsdk.GraphServiceClient
}

func NewOutlookAdapter(id, name, clientID, tenantID, tokenFile string) *OutlookAdapter {
	return &OutlookAdapter{
		id:        id,
		name:      name,
		clientID:  clientID,
		tenantID:  tenantID,
		tokenFile: tokenFile,
		calendars: make(map[string]string),
		colors:    make(map[string]string),
	}
}

func (o *OutlookAdapter) ID() string   { return o.id }
func (o *OutlookAdapter) Name() string { return o.name }

// Calendars returns all available calendars (ID -> Name).
func (o *OutlookAdapter) Calendars() map[string]string { return o.calendars }

// Login builds a Graph client on the saved token and loads the calendar list.
func (o *OutlookAdapter) Login(ctx context.Context) error {
	tok, err := readToken(o.tokenFile)
	if err != nil {
		return fmt.Errorf("read token file (run 'dashcal auth' first): %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return fmt.Errorf("token file has no usable token: delete %s and run 'dashcal auth' again", o.tokenFile)
	}

	// The refresh context must outlive ctx, which may be a per-command timeout.
	refresher := OAuthConfig(o.clientID, o.tenantID, "").TokenSource(context.Background(), tok)
	src := oauth2.ReuseTokenSource(tok, newPersistingSource(refresher, o.tokenFile, tok))

	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(graphCredential{src: src}, []string{
		"https://graph.microsoft.com/.default",
	})
	if err != nil {
		return fmt.Errorf("create graph client: %w", err)
	}
	o.client = client

	o.loadCalendarList(ctx)
	return nil
}

// loadCalendarList fills calendars and their colors. A failure leaves only
// the default calendar, which FetchEvents reads through /me/calendar.
func (o *OutlookAdapter) loadCalendarList(ctx context.Context) {
	result, err := o.client.Me().Calendars().Get(ctx, nil)
	if err != nil {
		log.Warn("could not list outlook calendars, using default", "err", err)
		o.calendars[fallbackCalendarID] = "Calendar"
		return
	}

	for _, cal := range result.GetValue() {
		id, name := derefStr(cal.GetId()), derefStr(cal.GetName())
		if id == "" || name == "" {
			continue
		}
		o.calendars[id] = name
		if hex := derefStr(cal.GetHexColor()); hex != "" {
			o.colors[id] = hex
		}
	}
	log.Debug("loaded outlook calendars", "count", len(o.calendars))
}
