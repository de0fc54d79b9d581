package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/yanun0323/errors"
)

// ============================================================================
// Config types
// ============================================================================

// Config represents the CLI configuration stored in ~/.ahadi/config.toml.
type Config struct {
	Default ConfigDefault `toml:"default"`
	Auth    ConfigAuth    `toml:"auth"`
}

// ConfigDefault holds the backend endpoints.
type ConfigDefault struct {
	BaseURL   string `toml:"base_url"`
	WSBaseURL string `toml:"ws_base_url"`
}

// ConfigAuth holds the session obtained by `ahadi login`.
type ConfigAuth struct {
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
	Phone        string `toml:"phone"`
}

// ============================================================================
// Config helpers
// ============================================================================

// homeOverride replaces ~/.ahadi when set (tests).
var homeOverride string

// configDir returns the path to ~/.ahadi, creating it if needed.
func configDir() (string, error) {
	dir := homeOverride
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "cannot determine home directory")
		}
		dir = filepath.Join(home, ".ahadi")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", errors.Wrap(err, "cannot create config directory")
	}
	return dir, nil
}

func configPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// loadConfig reads and parses the config file.
// If the file does not exist, it returns a zero-value Config.
func loadConfig() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, errors.Wrap(err, "cannot read config")
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "cannot parse config")
	}
	return &cfg, nil
}

func saveConfig(cfg *Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "cannot marshal config")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "cannot write config")
	}
	return nil
}

// setConfigValue sets a config field using dot notation (e.g. "default.base_url").
func setConfigValue(cfg *Config, key, value string) error {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return errors.New("key must use dot notation: section.field (e.g. default.base_url)")
	}
	section, field := parts[0], parts[1]

	switch section {
	case "default":
		switch field {
		case "base_url":
			cfg.Default.BaseURL = value
		case "ws_base_url":
			cfg.Default.WSBaseURL = value
		default:
			return errors.Errorf("unknown field %q in section [default]", field)
		}
	case "auth":
		switch field {
		case "access_token":
			cfg.Auth.AccessToken = value
		case "refresh_token":
			cfg.Auth.RefreshToken = value
		case "phone":
			cfg.Auth.Phone = value
		default:
			return errors.Errorf("unknown field %q in section [auth]", field)
		}
	default:
		return errors.Errorf("unknown config section %q (valid: default, auth)", section)
	}
	return nil
}

// configFields lists every settable key in display order.
func configFields(cfg *Config) [][2]string {
	return [][2]string{
		{"default.base_url", cfg.Default.BaseURL},
		{"default.ws_base_url", cfg.Default.WSBaseURL},
		{"auth.phone", cfg.Auth.Phone},
		{"auth.access_token", cfg.Auth.AccessToken},
		{"auth.refresh_token", cfg.Auth.RefreshToken},
	}
}

func displayConfigValue(key, value string) string {
	switch {
	case value == "" && key == "default.ws_base_url":
		return "(derived from base_url)"
	case value == "":
		return "(unset)"
	case strings.HasPrefix(key, "auth.") && strings.HasSuffix(key, "_token"):
		return maskToken(value)
	}
	return value
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or change ~/.ahadi/config.toml",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings with tokens masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if cfg.Default.BaseURL == "" {
			fmt.Fprintln(out, "Not initialised. Run 'ahadi init <base-url>' first.")
		}
		for _, f := range configFields(cfg) {
			fmt.Fprintf(out, "%-20s %s\n", f[0], displayConfigValue(f[0], f[1]))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:     "set <key> <value>",
	Short:   "Set one setting, e.g. default.ws_base_url",
	Example: "  ahadi config set default.ws_base_url wss://api.example.com",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], displayConfigValue(args[0], args[1]))
		return nil
	},
}

// ============================================================================
// Root command
// ============================================================================

// annotationRequiresAuth marks commands that need a stored access token.
const annotationRequiresAuth = "requiresAuth"

var verbose bool

func requiresAuth(cmd *cobra.Command) {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationRequiresAuth] = "true"
}

// guardAuth refuses commands marked requiresAuth (or whose parent is) when
// no access token is stored.
func guardAuth(cmd *cobra.Command, _ []string) error {
	needsAuth := false
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationRequiresAuth] == "true" {
			needsAuth = true
			break
		}
	}
	if !needsAuth {
		return nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if cfg.Auth.AccessToken == "" {
		return errors.New("not logged in; run 'ahadi login request-otp <phone>' then 'ahadi login verify <phone> <code>'")
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "ahadi",
	Short: "Ahadi events CLI",
	Long: "Command-line interface for the Ahadi event platform.\n" +
		"Sign in, read your inbox, send direct messages, and follow live chats and notifications.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: guardAuth,
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and connection activity")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
