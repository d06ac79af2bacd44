// Package config loads joincode settings from defaults, an optional YAML
// file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// EnvPrefix prefixes every environment override, e.g. JOINCODE_STORE_PATH.
const EnvPrefix = "JOINCODE"

var (
	// ErrMissingToken indicates that no bot token was configured.
	ErrMissingToken = errors.New("no Discord token configured (set DISCORD_TOKEN)")

	// ErrInvalidConfig indicates a setting with an unusable value.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds application configuration.
type Config struct {
	Discord     DiscordConfig
	Store       StoreConfig
	Catalog     CatalogConfig
	Session     SessionConfig
	Permissions PermissionsConfig
}

// DiscordConfig holds gateway settings.
type DiscordConfig struct {
	Token string
	// GuildID limits command registration to one guild. Empty means global.
	GuildID string `mapstructure:"guild_id"`
}

// StoreConfig selects where join codes are persisted.
type StoreConfig struct {
	Backend string
	Path    string
}

// CatalogConfig points at a token catalog file. Empty means the built-in one.
type CatalogConfig struct {
	Path string
}

// SessionConfig tunes the code-builder lifecycle.
type SessionConfig struct {
	Timeout       time.Duration
	Retention     time.Duration
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// PermissionsConfig relaxes or extends the manage-server gate.
type PermissionsConfig struct {
	// OpenSetCode lets anyone start /setcode. Defaults to true; false
	// restricts it to members who may manage the server.
	OpenSetCode bool `mapstructure:"open_setcode"`
	// Managers may set and reset codes in every guild.
	Managers []string
}

// Options controls where Load looks.
type Options struct {
	// ConfigFile is an explicit YAML file; it must exist when set.
	// Otherwise joincode.yaml is read from the working directory if present.
	ConfigFile string
	// EnvFile is loaded into the environment first. Defaults to ".env";
	// a missing file is not an error.
	EnvFile string
}

// Load reads configuration. Env var overrides use prefix JOINCODE_, and
// DISCORD_TOKEN is honoured for the token.
func Load(opts Options) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("joincode")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.BindEnv("discord.token", EnvPrefix+"_DISCORD_TOKEN", "DISCORD_TOKEN"); err != nil {
		return Config{}, fmt.Errorf("bind token env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.guild_id", "")
	v.SetDefault("store.backend", BackendJSON)
	v.SetDefault("store.path", "guild_codes.json")
	v.SetDefault("catalog.path", "")
	v.SetDefault("session.timeout", 300*time.Second)
	v.SetDefault("session.retention", 15*time.Minute)
	v.SetDefault("session.sweep_interval", time.Minute)
	v.SetDefault("permissions.open_setcode", true)
	v.SetDefault("permissions.managers", []string{})
}

// Validate checks values that defaults cannot make wrong on their own.
// The token is checked separately by RequireToken because only `run`
// needs it.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("%w: store.backend %q (want %s or %s)", ErrInvalidConfig, c.Store.Backend, BackendJSON, BackendSQLite)
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("%w: store.path is empty", ErrInvalidConfig)
	}
	if c.Session.Timeout <= 0 {
		return fmt.Errorf("%w: session.timeout must be positive", ErrInvalidConfig)
	}
	if c.Session.Retention < 0 || c.Session.SweepInterval < 0 {
		return fmt.Errorf("%w: session durations must not be negative", ErrInvalidConfig)
	}
	return nil
}

// RequireToken returns ErrMissingToken when no token is configured.
func (c Config) RequireToken() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return ErrMissingToken
	}
	return nil
}
