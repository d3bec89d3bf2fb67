package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pulsedash/dashcal/internal/adapter/file"
	"github.com/pulsedash/dashcal/internal/adapter/google"
	"github.com/pulsedash/dashcal/internal/adapter/ics"
	"github.com/pulsedash/dashcal/internal/adapter/outlook"
	"github.com/pulsedash/dashcal/internal/agenda"
	"github.com/pulsedash/dashcal/internal/core"
)

const appName = "dashcal"

var (
	cfgFile string
	profile string
	adapter core.CalendarSource
	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "A calendar grid and agenda for terminals and wall dashboards",
	Long: `dashcal shows a calendar window with per-day event dots and an agenda of
what's coming up, read from Google Calendar, Outlook, an ICS feed or a YAML file.

The window is either the next N days (--days N) or a full month grid
(--days 0). Run 'dashcal ui' for the interactive view or 'dashcal serve'
to feed a web dashboard.`,
	SilenceUsage:      true,
	PersistentPreRunE: initAdapter,
	PersistentPostRun: func(*cobra.Command, []string) { closeLog() },
	RunE:              runAgenda,
}

// Execute runs the root command and exits 1 on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		closeLog()
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/dashcal/config.yaml)")
	pf.StringVarP(&profile, "profile", "p", "", "config profile to use (e.g., work, family)")

	pf.String("provider", "", "Event source: google, outlook, ics or file")
	pf.String("ics-url", "", "ICS feed URL or file path (provider ics)")
	pf.String("events-file", "", "YAML events file (provider file)")
	pf.IntP("days", "d", 7, "Rolling window length in days; 0 shows a month grid")
	pf.StringP("month", "m", "", "Month to show in grid mode (YYYY-MM)")
	pf.StringP("select", "s", "", "Selected day (YYYY-MM-DD, 'today', 'tomorrow', weekday names)")
	pf.IntP("limit", "n", agenda.DefaultLimit, "Maximum agenda entries")
	pf.Int("horizon-days", 60, "How far past the selected day a month agenda looks")
	pf.StringP("calendars", "c", "", "Comma-separated list of calendar names to filter")
	pf.Bool("no-allday", false, "Exclude all-day events")
	pf.String("timezone", "", "IANA time zone for day boundaries (default: local)")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.String("log-file", "", "Write logs to this file instead of stderr")

	for _, name := range []string{
		"provider", "ics-url", "events-file", "days", "month", "select", "limit",
		"horizon-days", "calendars", "no-allday", "timezone", "log-level", "log-file",
	} {
		_ = viper.BindPFlag(strings.ReplaceAll(name, "-", "_"), pf.Lookup(name))
	}
}

func initConfig() {
	// .env only seeds the environment; a missing file is normal
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Warning: reading .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DASHCAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("provider", "google")
	viper.SetDefault("credentials_file", filepath.Join(configDir(), "credentials.json"))
	viper.SetDefault("token_file", filepath.Join(configDir(), "token.json"))
	viper.SetDefault("days", 7)
	viper.SetDefault("limit", agenda.DefaultLimit)
	viper.SetDefault("horizon_days", 60)
	viper.SetDefault("refresh", "*/15 * * * *")
	viper.SetDefault("listen", "127.0.0.1:8080")
	viper.SetDefault("cache_ttl", 5*time.Minute)
	viper.SetDefault("log_level", "warn")

	readErr := viper.ReadInConfig()
	activeProfile := applyProfile()
	setupLogging()

	if readErr == nil {
		log.Debug("using config file", "path", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		log.Warn("could not read config file", "path", cfgFile, "err", readErr)
	}
	if activeProfile != "" {
		log.Debug("using profile", "profile", activeProfile)
	}
}

// setupLogging configures the global logger from log_level and log_file.
func setupLogging() {
	level, err := log.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = log.WarnLevel
	}
	log.SetLevel(level)
	log.SetReportTimestamp(true)
	log.SetPrefix(appName)

	if path := viper.GetString("log_file"); path != "" {
		redirectLog(expandPath(path))
	}
}

// redirectLog sends log output to path, keeping stderr on failure.
func redirectLog(path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Warn("cannot create log directory", "path", path, "err", err)
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Warn("cannot open log file", "path", path, "err", err)
		return
	}
	closeLog()
	logFile = f
	log.SetOutput(f)
}

func closeLog() {
	if logFile != nil {
		log.SetOutput(os.Stderr)
		_ = logFile.Close()
		logFile = nil
	}
}

// applyProfile merges profile-specific settings over defaults and returns
// the profile it applied.
func applyProfile() string {
	activeProfile := profile
	if activeProfile == "" {
		activeProfile = viper.GetString("default_profile")
	}
	if activeProfile == "" {
		return ""
	}

	profileKey := "profiles." + activeProfile
	if !viper.IsSet(profileKey) {
		log.Warn("profile not found in config", "profile", activeProfile)
		return ""
	}

	// A CLI flag always wins over the profile
	for _, s := range profileSettings {
		key := profileKey + "." + s.key
		if viper.IsSet(key) && !isFlagExplicitlySet(s.key) {
			viper.Set(s.key, viper.Get(key))
		}
	}
	return activeProfile
}

func isFlagExplicitlySet(viperKey string) bool {
	name := strings.ReplaceAll(viperKey, "_", "-")
	if f := rootCmd.PersistentFlags().Lookup(name); f != nil && f.Changed {
		return true
	}
	// Subcommand flags such as serve --listen
	for _, c := range rootCmd.Commands() {
		if f := c.Flags().Lookup(name); f != nil && f.Changed {
			return true
		}
	}
	return false
}

// skipsAdapter reports whether cmd runs without a provider.
func skipsAdapter(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", "profile", "auth":
			return true
		}
	}
	return false
}

func initAdapter(cmd *cobra.Command, args []string) error {
	if skipsAdapter(cmd) {
		return nil
	}

	loc, err := displayLocation()
	if err != nil {
		return err
	}

	switch provider := viper.GetString("provider"); provider {
	case "google":
		adapter, err = newGoogleAdapter()
	case "outlook":
		adapter, err = newOutlookAdapter()
	case "ics":
		source := viper.GetString("ics_url")
		if source == "" {
			return fmt.Errorf("ics_url not configured\n\nSet it with --ics-url or in your profile:\n  ics_url: \"https://example.com/calendar.ics\"")
		}
		adapter = ics.NewAdapter("ics", "ICS feed", expandPath(source))
	case "file":
		path := viper.GetString("events_file")
		if path == "" {
			return fmt.Errorf("events_file not configured\n\nSet it with --events-file or in your profile")
		}
		adapter = file.NewAdapter("file", "Events file", expandPath(path), loc)
	default:
		return fmt.Errorf("unknown provider: %s (supported: google, outlook, ics, file)", provider)
	}
	if err != nil {
		return err
	}

	if err := adapter.Login(cmd.Context()); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	log.Debug("provider ready", "provider", adapter.ID(), "calendars", len(adapter.Calendars()))
	return nil
}

func newGoogleAdapter() (core.CalendarSource, error) {
	credsFile := expandPath(viper.GetString("credentials_file"))
	tokenFile := expandPath(viper.GetString("token_file"))

	if _, err := os.Stat(credsFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("credentials file not found: %s\n\nDownload an OAuth client JSON from the Google Cloud console and set credentials_file", credsFile)
	}
	if _, err := os.Stat(tokenFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("token file not found: %s\n\nRun 'dashcal auth' to authenticate", tokenFile)
	}
	return google.NewGoogleAdapter("google", "Google Calendar", credsFile, tokenFile), nil
}

func newOutlookAdapter() (core.CalendarSource, error) {
	clientID := viper.GetString("client_id")
	if clientID == "" {
		return nil, fmt.Errorf("client_id not configured for Outlook provider\n\nAdd it to your profile config:\n  client_id: \"your-azure-app-client-id\"")
	}

	tokenFile := expandPath(viper.GetString("token_file"))
	if _, err := os.Stat(tokenFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("token file not found: %s\n\nRun 'dashcal auth' to authenticate with Microsoft", tokenFile)
	}
	return outlook.NewOutlookAdapter("outlook", "Outlook Calendar", clientID, viper.GetString("tenant_id"), tokenFile), nil
}

// displayLocation resolves the timezone setting. Empty means local time.
func displayLocation() (*time.Location, error) {
	name := viper.GetString("timezone")
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// newCalendar builds the engine from days, month, select and limit.
func newCalendar() (*agenda.Calendar, error) {
	loc, err := displayLocation()
	if err != nil {
		return nil, err
	}
	now := time.Now().In(loc)

	opts := agenda.Options{
		RollingDays: viper.GetInt("days"),
		AgendaLimit: viper.GetInt("limit"),
		Location:    loc,
	}
	if opts.RollingDays < 0 {
		return nil, fmt.Errorf("invalid days %d: use 0 for a month grid or a positive count", opts.RollingDays)
	}
	if s := viper.GetString("month"); s != "" {
		if opts.InitialMonth, err = parseMonth(s, now); err != nil {
			return nil, err
		}
	}
	if s := viper.GetString("select"); s != "" {
		day, err := parseDate(s, now)
		if err != nil {
			return nil, err
		}
		opts.Selection = agenda.Owned(day)
		if opts.InitialMonth.IsZero() {
			opts.InitialMonth = day
		}
	}
	return agenda.New(opts), nil
}

// buildFetchOptions turns the calendar and all-day filters into FetchOptions.
func buildFetchOptions() (core.FetchOptions, error) {
	opts := core.FetchOptions{ExcludeAllDay: viper.GetBool("no_allday")}

	if calendars := viper.GetString("calendars"); calendars != "" {
		ids := resolveCalendarNames(strings.Split(calendars, ","), adapter.Calendars())
		if len(ids) == 0 {
			return opts, fmt.Errorf("no matching calendars found for: %s\nUse 'dashcal calendars' to see available calendars", calendars)
		}
		opts.CalendarIDs = ids
	}
	return opts, nil
}

// loadCalendar builds the engine and fills it with the events it needs.
func loadCalendar(ctx context.Context) (*agenda.Calendar, error) {
	cal, err := newCalendar()
	if err != nil {
		return nil, err
	}
	opts, err := buildFetchOptions()
	if err != nil {
		return nil, err
	}
	opts.Start, opts.End = cal.FetchRange(viper.GetInt("horizon_days"))

	events, err := adapter.FetchEvents(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	cal.SetEvents(events)
	return cal, nil
}

func runAgenda(cmd *cobra.Command, args []string) error {
	cal, err := loadCalendar(cmd.Context())
	if err != nil {
		return err
	}
	printAgenda(cmd.OutOrStdout(), cal, DisplayOptionsFromConfig())
	return nil
}

// parseDate accepts YYYY-MM-DD, MM-DD, MM/DD, MM/DD/YYYY, today, tomorrow,
// yesterday and (next) weekday names, relative to now.
func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	loc := now.Location()
	today := agenda.StartOfDay(now)

	switch s {
	case "today":
		return today, nil
	case "tomorrow":
		return agenda.AddDays(today, 1), nil
	case "yesterday":
		return agenda.AddDays(today, -1), nil
	}

	if wd, ok := weekdays[strings.TrimPrefix(s, "next ")]; ok {
		ahead := int(wd - today.Weekday())
		if ahead <= 0 {
			ahead += 7
		}
		return agenda.AddDays(today, ahead), nil
	}

	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("01/02/2006", s, loc); err == nil {
		return t, nil
	}
	for _, layout := range []string{"01-02", "01/02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s (use YYYY-MM-DD, 'today', 'tomorrow', or weekday names)", s)
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// parseMonth accepts YYYY-MM, or "this", "next" and "last" relative to now.
func parseMonth(s string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "this", "current":
		return agenda.StartOfMonth(now), nil
	case "next":
		return agenda.NextMonth(now), nil
	case "last", "prev", "previous":
		return agenda.PrevMonth(now), nil
	}
	t, err := time.ParseInLocation("2006-01", strings.TrimSpace(s), now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse month: %s (use YYYY-MM, 'this', 'next' or 'last')", s)
	}
	return t, nil
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", appName)
	}
	return filepath.Join(home, ".config", appName)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// resolveCalendarNames maps names to calendar IDs. An exact ID matches
// first, then a case-insensitive substring of the calendar name.
func resolveCalendarNames(names []string, calendars map[string]string) []string {
	var ids []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, exists := calendars[name]; exists {
			ids = append(ids, name)
			continue
		}
		needle := strings.ToLower(name)
		for id, calName := range calendars {
			if strings.Contains(strings.ToLower(calName), needle) {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids
}
