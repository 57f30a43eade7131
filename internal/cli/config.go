package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. UNIFY_API_BASE_URL
const EnvPrefix = "UNIFY"

// Config is the CLI configuration: a TOML file overlaid with UNIFY_* env vars
// and command-line flags
type Config struct {
	v    *viper.Viper
	path string
}

// DefaultConfigPath returns ~/.config/unify/cli/config.toml, or the
// %LOCALAPPDATA% equivalent on Windows
func DefaultConfigPath() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData != "" {
			return filepath.Join(appData, "unify", "cli", "config.toml"), nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "unify", "cli", "config.toml"), nil
}

// LoadConfig reads path (the default location when empty). A missing file
// is not an error; defaults and the environment still apply.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.base_url", "http://localhost:8787")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("output.format", "text")
	v.SetDefault("log.level", "warn")

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return &Config{v: v, path: path}, nil
}

// Viper exposes the underlying store for flag binding
func (c *Config) Viper() *viper.Viper { return c.v }

func (c *Config) Path() string { return c.path }

func (c *Config) BaseURL() string {
	return strings.TrimRight(c.v.GetString("api.base_url"), "/")
}

func (c *Config) Timeout() time.Duration {
	if d := c.v.GetDuration("api.timeout"); d > 0 {
		return d
	}
	return 30 * time.Second
}

func (c *Config) Format() string {
	return strings.ToLower(c.v.GetString("output.format"))
}

func (c *Config) LogLevel() string {
	return c.v.GetString("log.level")
}

func (c *Config) Token() string {
	return c.v.GetString("auth.token")
}

// SaveToken stores the session token in the config file, creating it with
// owner-only permissions
func (c *Config) SaveToken(token string) error {
	c.v.Set("auth.token", token)
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}
	if err := c.v.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.path, err)
	}
	return os.Chmod(c.path, 0o600)
}
