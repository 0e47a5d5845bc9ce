package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Player   PlayerConfig   `mapstructure:"player"`
	Download DownloadConfig `mapstructure:"download"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds lessons server configuration
type ServerConfig struct {
	URL       string `mapstructure:"url"`        // Base URL, e.g. https://lessons.example.com
	APIPrefix string `mapstructure:"api_prefix"` // Defaults to /api
}

// PlayerConfig holds external audio player configuration
type PlayerConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// DownloadConfig holds audio download configuration
type DownloadConfig struct {
	Dir string `mapstructure:"dir"` // Where completed audio files live
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:       "",
			APIPrefix: "/api",
		},
		Player: PlayerConfig{
			Command: "mpv",
			Args:    []string{},
		},
		Download: DownloadConfig{
			Dir: filepath.Join(defaultDataPath(), "audio"),
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "durus.log"),
			Level: "INFO",
		},
	}
}

// defaultConfigPath returns the config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "durus")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "durus")
	}
}

// defaultDataPath returns the data directory (cache db, downloads, logs)
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "durus")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "durus")
	}
}

// DataPath returns the data directory path
func DataPath() string {
	return defaultDataPath()
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("DURUS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	viper.Set("server.url", cfg.Server.URL)
	viper.Set("server.api_prefix", cfg.Server.APIPrefix)

	viper.Set("player.command", cfg.Player.Command)
	viper.Set("player.args", cfg.Player.Args)

	viper.Set("download.dir", cfg.Download.Dir)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if the server URL is set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != ""
}

// BaseURL returns the server URL joined with the API prefix.
func (c *Config) BaseURL() string {
	prefix := c.Server.APIPrefix
	if prefix == "" {
		prefix = "/api"
	}
	return c.Server.URL + prefix
}
