package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/idilsaglam/krona/internal/logging"
	"github.com/idilsaglam/krona/internal/persist"
	"github.com/idilsaglam/krona/internal/store/jsonstore"
)

// Config represents the complete Krona configuration
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	TUI     TUIConfig     `mapstructure:"tui"`
}

// StorageConfig controls where the todo list is kept
type StorageConfig struct {
	// Dir is the directory holding the data file (default: ~/Documents/Krona)
	Dir string `mapstructure:"dir"`
	// Key is the logical name of the blob; the file is <dir>/<key>.json (default: "todos")
	Key string `mapstructure:"key"`
	// Watch reloads the list in the TUI when another process rewrites the file (default: true)
	Watch bool `mapstructure:"watch"`
}

// LoggingConfig controls the structured log
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR (default: INFO)
	Level string `mapstructure:"level"`
	// File is the log file path; "-" logs to stderr (default: <storage.dir>/krona.log)
	File string `mapstructure:"file"`
}

// TUIConfig controls the terminal UI
type TUIConfig struct {
	// Theme is one of "classic", "neon", "mono" (default: "classic")
	Theme string `mapstructure:"theme"`
	// TickMs is how often running timers are redrawn, in milliseconds (default: 1000)
	TickMs int `mapstructure:"tick_ms"`
}

// Tick returns the redraw interval as a time.Duration
func (c *TUIConfig) Tick() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

// LogFile resolves the log path, defaulting to a file next to the data.
func (c *Config) LogFile() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(c.Storage.Dir, "krona.log")
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Dir: jsonstore.DefaultDir(),
			Key:   persist.Key,
			Watch: true,
		},
		Logging: LoggingConfig{
			Level: logging.LevelInfo,
		},
		TUI: TUIConfig{
			Theme:  "classic",
			TickMs: 1000,
		},
	}
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("storage.dir", defaults.Storage.Dir)
	v.SetDefault("storage.key", defaults.Storage.Key)
	v.SetDefault("storage.watch", defaults.Storage.Watch)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)

	v.SetDefault("tui.theme", defaults.TUI.Theme)
	v.SetDefault("tui.tick_ms", defaults.TUI.TickMs)
}

// Load reads configuration from path (or ConfigFile when empty) and the
// KRONA_* environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("KRONA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = ConfigFile()
	}
	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "krona")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".krona"
	}
	return filepath.Join(home, ".config", "krona")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidThemes returns the accepted tui.theme values
func ValidThemes() []string {
	return []string{"classic", "neon", "mono"}
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.Dir) == "" {
		return fmt.Errorf("storage.dir must not be empty")
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		return fmt.Errorf("storage.key must not be empty")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	valid := false
	for _, th := range ValidThemes() {
		if strings.EqualFold(c.TUI.Theme, th) {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("tui.theme: unknown theme %q (valid: %s)", c.TUI.Theme, strings.Join(ValidThemes(), ", "))
	}
	if c.TUI.TickMs <= 0 {
		return fmt.Errorf("tui.tick_ms must be positive, got %d", c.TUI.TickMs)
	}
	return nil
}
