package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pulsedash/dashcal/internal/adapter/outlook"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

const (
	redirectPort = "8085"
	redirectURL  = "http://localhost:" + redirectPort + "/callback"
	authTimeout  = 5 * time.Minute
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with your calendar provider",
	Long: `Authenticate with Google Calendar or Outlook using OAuth.

A local server on port ` + redirectPort + ` receives the callback, your browser opens
the provider's sign-in page, and the token is saved to token_file.

The provider comes from your profile (provider: google|outlook). ICS feeds and
event files need no authentication.`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	provider := viper.GetString("provider")

	var (
		config   *oauth2.Config
		opts     []oauth2.AuthCodeOption
		err      error
		display  string
		srcLabel string
	)
	switch provider {
	case "google":
		config, err = googleOAuthConfig()
		opts = []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce}
		display, srcLabel = "Google", "Google Calendar"
	case "outlook":
		config, err = outlookOAuthConfig()
		opts = []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("prompt", "consent")}
		display, srcLabel = "Microsoft", "Outlook calendar"
	case "ics", "file":
		return fmt.Errorf("provider %q needs no authentication", provider)
	default:
		return fmt.Errorf("unknown provider: %s (supported: google, outlook)", provider)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tok, err := getTokenViaLocalServer(cmd.Context(), out, config, display, opts...)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}

	tokenFile := expandPath(viper.GetString("token_file"))
	if err := saveToken(tokenFile, tok); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Fprintln(out, "\n✅ Authentication successful!")
	fmt.Fprintf(out, "📁 Token saved to %s\n", tokenFile)
	fmt.Fprintf(out, "\nYou can now run 'dashcal' to see your %s events.\n", srcLabel)
	return nil
}

func googleOAuthConfig() (*oauth2.Config, error) {
	credsFile := expandPath(viper.GetString("credentials_file"))
	b, err := os.ReadFile(credsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w\n\nCreate an OAuth desktop client in Google Cloud Console and save it as %s", err, credsFile)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	config.RedirectURL = redirectURL
	return config, nil
}

func outlookOAuthConfig() (*oauth2.Config, error) {
	clientID := viper.GetString("client_id")
	if clientID == "" {
		return nil, fmt.Errorf("client_id not configured\n\nAdd it to your profile config:\n  client_id: \"your-azure-app-client-id\"")
	}

	return outlook.OAuthConfig(clientID, viper.GetString("tenant_id"), redirectURL), nil
}

const callbackPage = `<!DOCTYPE html>
<html>
<head>
	<title>dashcal authorized</title>
	<style>
		body { font-family: -apple-system, sans-serif; display: flex;
		       justify-content: center; align-items: center; height: 100vh;
		       margin: 0; background: #18181b; color: #f9fafb; }
		.card { background: #27272a; padding: 40px; border-radius: 12px; text-align: center; }
		h1 { color: #10b981; margin-bottom: 10px; }
		p { color: #a1a1aa; }
	</style>
</head>
<body>
	<div class="card">
		<h1>Authorization Successful</h1>
		<p>You can close this window and return to the terminal.</p>
	</div>
</body>
</html>
`

// callbackRouter accepts exactly one redirect carrying the expected state.
func callbackRouter(state string, codes chan<- string, errs chan<- error) http.Handler {
	r := chi.NewRouter()
	r.Get("/callback", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if got := q.Get("state"); got != state {
			http.Error(w, "Authorization failed: state mismatch", http.StatusBadRequest)
			log.Warn("oauth callback with unexpected state", "state", got)
			return
		}
		code := q.Get("code")
		if code == "" {
			errMsg := q.Get("error")
			http.Error(w, "Authorization failed: "+errMsg, http.StatusBadRequest)
			select {
			case errs <- fmt.Errorf("authorization failed: %s", errMsg):
			default:
			}
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, callbackPage)
		select {
		case codes <- code:
		default:
		}
	})
	return r
}

func getTokenViaLocalServer(ctx context.Context, out io.Writer, config *oauth2.Config, providerName string, authOpts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	state, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	codes := make(chan string, 1)
	errs := make(chan error, 1)
	server := &http.Server{
		Addr:              ":" + redirectPort,
		Handler:           callbackRouter(state, codes, errs),
		ReadHeaderTimeout: 10 * time.Second,
	}
	defer server.Shutdown(context.Background())

	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			select {
			case errs <- err:
			default:
			}
		}
	}()

	authURL := config.AuthCodeURL(state, authOpts...)

	fmt.Fprintf(out, "🔐 Opening browser for %s authorization...\n\n", providerName)
	if err := openBrowser(authURL); err != nil {
		log.Debug("open browser failed", "err", err)
		fmt.Fprintln(out, "⚠️  Couldn't open browser automatically.")
		fmt.Fprintln(out, "   Please open this URL manually:")
		fmt.Fprintln(out, authURL)
	}
	fmt.Fprintln(out, "⏳ Waiting for authorization...")

	var code string
	select {
	case code = <-codes:
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("timeout waiting for authorization")
	}

	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return tok, nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}

	return cmd.Start()
}

// saveToken writes the token with owner-only permissions.
func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
