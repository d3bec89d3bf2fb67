package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindBool
)

// profileSetting is one key a profile can override.
type profileSetting struct {
	key     string // viper key; nested keys use dots
	flag    string // flag on profile add/edit
	kind    settingKind
	section string
	usage   string
}

var profileSettings = []profileSetting{
	{"provider", "provider", kindString, "Source", "Event source: google, outlook, ics or file"},
	{"credentials_file", "credentials-file", kindString, "Source", "Path to Google OAuth client credentials"},
	{"token_file", "token-file", kindString, "Source", "Path to the saved OAuth token"},
	{"client_id", "client-id", kindString, "Source", "Azure app client ID (outlook)"},
	{"tenant_id", "tenant-id", kindString, "Source", "Azure tenant ID (outlook)"},
	{"ics_url", "ics-url", kindString, "Source", "ICS feed URL or file path"},
	{"events_file", "events-file", kindString, "Source", "YAML events file"},

	{"days", "days", kindInt, "Window", "Rolling window length; 0 shows a month grid"},
	{"limit", "limit", kindInt, "Window", "Maximum agenda entries"},
	{"horizon_days", "horizon-days", kindInt, "Window", "Month agenda look-ahead in days"},
	{"timezone", "timezone", kindString, "Window", "IANA time zone"},

	{"calendars", "calendars", kindString, "Filters", "Calendar filter"},
	{"no_allday", "no-allday", kindBool, "Filters", "Exclude all-day events"},

	{"refresh", "refresh", kindString, "Service", "Cron schedule for re-fetching events"},
	{"listen", "listen", kindString, "Service", "HTTP listen address for serve"},
	{"log_level", "log-level", kindString, "Service", "Log level"},
	{"log_file", "log-file", kindString, "Service", "Log file"},

	{"display.calendar", "show-calendar", kindBool, "Display", "Show calendar name"},
	{"display.time", "show-time", kindBool, "Display", "Show start time and duration"},
	{"display.location", "show-location", kindBool, "Display", "Show location"},
	{"display.description", "show-description", kindBool, "Display", "Show description"},
	{"display.url", "show-url", kindBool, "Display", "Show event link"},
	{"display.id", "show-id", kindBool, "Display", "Show event ID"},
	{"display.in_progress", "show-in-progress", kindBool, "Display", "Show in-progress status"},
}

var profileSections = []string{"Source", "Window", "Filters", "Service", "Display"}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage configuration profiles",
	Long: `Manage configuration profiles for different accounts, screens and filter presets.

Profiles let one config file drive several dashboards, e.g. a work Outlook
agenda on the laptop and a family ICS month grid on the kitchen display.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE:  runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show profile settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfileShow,
}

var profileAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileAdd,
}

var profileSetDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileSetDefault,
}

var profileEditCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Edit a profile's settings",
	Long: `Edit a profile's settings using flags.

Example:
  dashcal profile edit kitchen --days=0 --horizon-days=30
  dashcal profile edit work --calendars=Team --no-allday=true`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileEdit,
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd, profileShowCmd, profileAddCmd, profileSetDefaultCmd, profileEditCmd)

	addProfileFlags(profileAddCmd.Flags())
	addProfileFlags(profileEditCmd.Flags())
}

// addProfileFlags registers one flag per setting. Only flags the user
// changes are written, so defaults here are zero values.
func addProfileFlags(fs *pflag.FlagSet) {
	for _, s := range profileSettings {
		switch s.kind {
		case kindString:
			fs.String(s.flag, "", s.usage)
		case kindInt:
			fs.Int(s.flag, 0, s.usage)
		case kindBool:
			fs.Bool(s.flag, false, s.usage)
		}
	}
}

// applyProfileFlags copies every changed flag into profile and reports
// whether anything changed.
func applyProfileFlags(fs *pflag.FlagSet, profile map[string]any) bool {
	changed := false
	for _, s := range profileSettings {
		if !fs.Changed(s.flag) {
			continue
		}
		var val any
		switch s.kind {
		case kindString:
			val, _ = fs.GetString(s.flag)
		case kindInt:
			val, _ = fs.GetInt(s.flag)
		case kindBool:
			val, _ = fs.GetBool(s.flag)
		}
		setNested(profile, s.key, val)
		changed = true
	}
	return changed
}

// setNested stores val under a dotted key, creating maps as needed.
func setNested(m map[string]any, key string, val any) {
	for {
		head, rest, nested := cutDot(key)
		if !nested {
			m[head] = val
			return
		}
		child, ok := m[head].(map[string]any)
		if !ok {
			child = make(map[string]any)
			m[head] = child
		}
		m, key = child, rest
	}
}

// getNested reads a dotted key.
func getNested(m map[string]any, key string) (any, bool) {
	for {
		head, rest, nested := cutDot(key)
		v, ok := m[head]
		if !ok || !nested {
			return v, ok
		}
		if m, ok = v.(map[string]any); !ok {
			return nil, false
		}
		key = rest
	}
}

func cutDot(key string) (string, string, bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			return key[:i], key[i+1:], true
		}
	}
	return key, "", false
}

func runProfileList(cmd *cobra.Command, args []string) error {
	cfg, err := readConfigFile()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	profiles, _ := cfg["profiles"].(map[string]any)
	defaultProfile, _ := cfg["default_profile"].(string)

	out := cmd.OutOrStdout()
	if len(profiles) == 0 {
		fmt.Fprintln(out, "No profiles configured.")
		fmt.Fprintln(out, "\nAdd one with: dashcal profile add <name> --provider=ics --ics-url=<url>")
		return nil
	}

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "Available profiles:")
	fmt.Fprintln(out, divider)
	for _, name := range names {
		marker := "  "
		if name == defaultProfile {
			marker = "* "
		}
		fmt.Fprintf(out, "%s%s\n", marker, name)
	}
	fmt.Fprintln(out, divider)
	if defaultProfile != "" {
		fmt.Fprintf(out, "Default: %s\n", defaultProfile)
	}
	fmt.Fprintln(out, "\nUse 'dashcal profile show <name>' for details")
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	cfg, err := readConfigFile()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	defaultProfile, _ := cfg["default_profile"].(string)

	name := defaultProfile
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		return fmt.Errorf("no profile specified and no default profile set")
	}

	settings, ok := lookupProfile(cfg, name)
	if !ok {
		return fmt.Errorf("profile '%s' not found", name)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Profile: %s\n", name)
	if name == defaultProfile {
		fmt.Fprintln(out, "(default)")
	}
	fmt.Fprintln(out, divider)

	for _, section := range profileSections {
		var lines []string
		for _, s := range profileSettings {
			if s.section != section {
				continue
			}
			if v, ok := getNested(settings, s.key); ok {
				lines = append(lines, fmt.Sprintf("  %s: %v", s.flag, v))
			}
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n%s:\n", section)
		for _, l := range lines {
			fmt.Fprintln(out, l)
		}
	}
	fmt.Fprintln(out)
	return nil
}

func runProfileAdd(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := readConfigFile()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if _, exists := lookupProfile(cfg, name); exists {
		return fmt.Errorf("profile '%s' already exists. Use 'dashcal profile edit %s' to modify it", name, name)
	}

	settings := make(map[string]any)
	applyProfileFlags(cmd.Flags(), settings)

	if err := saveProfileToConfig(name, settings); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Profile '%s' created\n", name)
	fmt.Fprintf(out, "\nUse it with: dashcal -p %s\n", name)
	fmt.Fprintf(out, "Set as default: dashcal profile default %s\n", name)
	return nil
}

func runProfileSetDefault(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := readConfigFile()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if _, ok := lookupProfile(cfg, name); !ok {
		return fmt.Errorf("profile '%s' not found", name)
	}

	cfg["default_profile"] = name
	if err := writeConfigFile(cfg); err != nil {
		return fmt.Errorf("failed to set default profile: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Default profile set to '%s'\n", name)
	return nil
}

func runProfileEdit(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := readConfigFile()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	settings, ok := lookupProfile(cfg, name)
	if !ok {
		return fmt.Errorf("profile '%s' not found. Use 'dashcal profile add %s' to create it", name, name)
	}

	if !applyProfileFlags(cmd.Flags(), settings) {
		fmt.Fprintln(cmd.OutOrStdout(), "No changes specified. Use flags to update settings:")
		fmt.Fprintln(cmd.OutOrStdout(), "  dashcal profile edit", name, "--days=14 --no-allday=true")
		return nil
	}

	if err := saveProfileToConfig(name, settings); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Profile '%s' updated\n", name)
	return nil
}

// Config file manipulation functions

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return filepath.Join(configDir(), "config.yaml")
}

func lookupProfile(cfg map[string]any, name string) (map[string]any, bool) {
	profiles, _ := cfg["profiles"].(map[string]any)
	p, ok := profiles[name]
	if !ok {
		return nil, false
	}
	settings, _ := p.(map[string]any)
	if settings == nil {
		settings = make(map[string]any)
	}
	return settings, true
}

func readConfigFile() (map[string]any, error) {
	data, err := os.ReadFile(getConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, err
	}

	var cfg map[string]any
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = make(map[string]any)
	}
	return cfg, nil
}

func writeConfigFile(cfg map[string]any) error {
	path := getConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func saveProfileToConfig(name string, settings map[string]any) error {
	cfg, err := readConfigFile()
	if err != nil {
		return err
	}

	profiles, ok := cfg["profiles"].(map[string]any)
	if !ok {
		profiles = make(map[string]any)
	}
	profiles[name] = settings
	cfg["profiles"] = profiles

	return writeConfigFile(cfg)
}
