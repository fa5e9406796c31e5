// Package config loads and validates the kanad configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for kanad.
type Config struct {
	General     GeneralConfig     `yaml:"general"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Channels    ChannelsConfig    `yaml:"channels"`
	History     HistoryConfig     `yaml:"history"`
	Research    ResearchConfig    `yaml:"research"`
	Attachments AttachmentsConfig `yaml:"attachments"`
}

type GeneralConfig struct {
	LogLevel              string `yaml:"logLevel"`
	DefaultRole           string `yaml:"defaultRole"`
	DefaultLanguage       string `yaml:"defaultLanguage"`
	RequestTimeoutSeconds int    `yaml:"requestTimeoutSeconds"`
}

type GeminiConfig struct {
	APIKey string       `yaml:"apiKey"`
	Models ModelsConfig `yaml:"models"`
}

type ModelsConfig struct {
	Flash string `yaml:"flash"`
	Pro   string `yaml:"pro"`
	Image string `yaml:"image"`
}

type ChannelsConfig struct {
	Web      WebConfig      `yaml:"web"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type WebConfig struct {
	Enabled bool    `yaml:"enabled"`
	Host    string  `yaml:"host"`
	Port    int     `yaml:"port"`
	Auth    WebAuth `yaml:"auth"`
}

type WebAuth struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type TelegramConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Token     string   `yaml:"token"`
	Workspace string   `yaml:"workspace"`
	AllowFrom []string `yaml:"allowFrom"`
}

type HistoryConfig struct {
	Persist bool   `yaml:"persist"`
	DBPath  string `yaml:"dbPath"`
}

type ResearchConfig struct {
	MaxResults         int    `yaml:"maxResults"`
	ArxivURL           string `yaml:"arxivUrl,omitempty"`
	SemanticScholarURL string `yaml:"semanticScholarUrl,omitempty"`
}

type AttachmentsConfig struct {
	MaxFileSizeMB int `yaml:"maxFileSizeMB"`
}

// DefaultConfigDir returns the default config directory (~/.kanad).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kanad"
	}
	return filepath.Join(home, ".kanad")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Defaults returns a config with every field at its default value.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:              "info",
			DefaultRole:           "Researcher",
			DefaultLanguage:       "English",
			RequestTimeoutSeconds: 300,
		},
		Gemini: GeminiConfig{
			APIKey: "${GEMINI_API_KEY}",
			Models: ModelsConfig{
				Flash: "gemini-2.5-flash",
				Pro:   "gemini-3-pro-preview",
				Image: "gemini-2.5-flash-image",
			},
		},
		Channels: ChannelsConfig{
			Web: WebConfig{
				Enabled: true,
				Host:    "127.0.0.1",
				Port:    8844,
			},
			Telegram: TelegramConfig{
				Workspace: "rnd",
			},
		},
		History: HistoryConfig{
			DBPath: "~/.kanad/history.db",
		},
		Research: ResearchConfig{
			MaxResults: 10,
		},
		Attachments: AttachmentsConfig{
			MaxFileSizeMB: 100,
		},
	}
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.History.DBPath = ExpandPath(cfg.History.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	if cfg.General.RequestTimeoutSeconds < 1 {
		errs = append(errs, "general.requestTimeoutSeconds must be >= 1")
	}
	if cfg.Gemini.Models.Flash == "" || cfg.Gemini.Models.Pro == "" || cfg.Gemini.Models.Image == "" {
		errs = append(errs, "gemini.models must name flash, pro, and image models")
	}
	if cfg.Channels.Web.Port < 0 || cfg.Channels.Web.Port > 65535 {
		errs = append(errs, "channels.web.port must be between 0 and 65535")
	}
	if cfg.Channels.Web.Auth.Enabled && (cfg.Channels.Web.Auth.Username == "" || cfg.Channels.Web.Auth.Password == "") {
		errs = append(errs, "channels.web.auth requires username and password when enabled")
	}
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token == "" {
		errs = append(errs, "channels.telegram.token is required when telegram is enabled")
	}
	switch cfg.Channels.Telegram.Workspace {
	case "", "roadmap", "rnd", "startup", "paper", "visual":
	default:
		errs = append(errs, "channels.telegram.workspace must name a conversational workspace")
	}
	if cfg.History.Persist && cfg.History.DBPath == "" {
		errs = append(errs, "history.dbPath is required when history.persist is enabled")
	}
	if cfg.Research.MaxResults < 1 || cfg.Research.MaxResults > 100 {
		errs = append(errs, "research.maxResults must be between 1 and 100")
	}
	if cfg.Attachments.MaxFileSizeMB < 1 {
		errs = append(errs, "attachments.maxFileSizeMB must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
