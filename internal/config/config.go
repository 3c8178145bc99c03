package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/projboard/internal/app"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds every runtime setting read from config.toml.
type Config struct {
	Logging  LoggingConfig  `toml:"logging"`
	Form     FormConfig     `toml:"form"`
	Server   ServerConfig   `toml:"server"`
	Activity ActivityConfig `toml:"activity"`
	UI       UIConfig       `toml:"ui"`
	Keys     KeyConfig      `toml:"keys"`
}

// LoggingConfig configures runtime log sinks.
type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig configures the dev-mode logfmt file sink.
type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// FormConfig overrides the project form bounds.
type FormConfig struct {
	TitleMinLength       int `toml:"title_min_length"`
	DescriptionMinLength int `toml:"description_min_length"`
	DescriptionMaxLength int `toml:"description_max_length"`
	PeopleMin            int `toml:"people_min"`
	PeopleMax            int `toml:"people_max"`
}

// ServerConfig configures serve-mode endpoints.
type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

// ActivityConfig configures the sqlite activity ledger. An empty path keeps it in memory.
type ActivityConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// UIConfig configures TUI rendering.
type UIConfig struct {
	RenderMarkdown   bool `toml:"render_markdown"`
	ShowDescriptions bool `toml:"show_descriptions"`
}

// KeyConfig overrides TUI key bindings.
type KeyConfig struct {
	Grab string `toml:"grab"`
	Yank string `toml:"yank"`
	Help string `toml:"help"`
	Quit string `toml:"quit"`
}

// Default returns the stock configuration with the ledger stored at activityPath.
func Default(activityPath string) Config {
	rules := app.DefaultFormRules()
	return Config{
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".projboard/log",
			},
		},
		Form: FormConfig{
			TitleMinLength:       rules.TitleMinLength,
			DescriptionMinLength: rules.DescriptionMinLength,
			DescriptionMaxLength: rules.DescriptionMaxLength,
			PeopleMin:            rules.PeopleMin,
			PeopleMax:            rules.PeopleMax,
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Activity: ActivityConfig{
			Enabled: true,
			Path:    activityPath,
		},
		UI: UIConfig{
			RenderMarkdown:   true,
			ShowDescriptions: true,
		},
		Keys: KeyConfig{
			Grab: "space",
			Yank: "y",
			Help: "?",
			Quit: "q",
		},
	}
}

// Load reads path over defaults. A missing or empty file yields the defaults.
func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// FormRules converts the form section into validation bounds.
func (c Config) FormRules() app.FormRules {
	return app.FormRules{
		TitleMinLength:       c.Form.TitleMinLength,
		DescriptionMinLength: c.Form.DescriptionMinLength,
		DescriptionMaxLength: c.Form.DescriptionMaxLength,
		PeopleMin:            c.Form.PeopleMin,
		PeopleMax:            c.Form.PeopleMax,
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if _, err := charmLog.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if err := c.FormRules().Validate(); err != nil {
		return fmt.Errorf("invalid form: %w", err)
	}

	if strings.TrimSpace(c.Server.HTTPBind) == "" {
		return errors.New("server.http_bind is required")
	}
	apiEndpoint := strings.Trim(strings.TrimSpace(c.Server.APIEndpoint), "/")
	mcpEndpoint := strings.Trim(strings.TrimSpace(c.Server.MCPEndpoint), "/")
	if apiEndpoint == "" || mcpEndpoint == "" {
		return errors.New("server.api_endpoint and server.mcp_endpoint are required")
	}
	if apiEndpoint == mcpEndpoint {
		return fmt.Errorf("server.api_endpoint and server.mcp_endpoint must differ: %q", c.Server.APIEndpoint)
	}

	seen := map[string]string{}
	for _, key := range []struct {
		name  string
		value string
	}{
		{name: "grab", value: c.Keys.Grab},
		{name: "yank", value: c.Keys.Yank},
		{name: "help", value: c.Keys.Help},
		{name: "quit", value: c.Keys.Quit},
	} {
		value := strings.TrimSpace(key.value)
		if value == "" {
			return fmt.Errorf("keys.%s is required", key.name)
		}
		if other, ok := seen[value]; ok {
			return fmt.Errorf("keys.%s duplicates keys.%s: %q", key.name, other, value)
		}
		seen[value] = key.name
	}

	return nil
}

// EnsureConfigDir creates the parent directory of path.
func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
