package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mmcdole/zenread/internal/importer"
	"github.com/mmcdole/zenread/internal/notify"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Import   ImportConfig   `mapstructure:"import"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Viewer   ViewerConfig   `mapstructure:"viewer"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StorageConfig holds the location of the database
type StorageConfig struct {
	Dir string `mapstructure:"dir"` // empty keeps everything in memory
}

// ImportConfig holds download settings
type ImportConfig struct {
	ProxyURL  string `mapstructure:"proxy_url"` // empty fetches directly
	MaxBytes  int64  `mapstructure:"max_bytes"`
	UserAgent string `mapstructure:"user_agent"`
}

// TelegramConfig holds the Bot API endpoint. Credentials live in the library settings.
type TelegramConfig struct {
	APIURL string `mapstructure:"api_url"`
}

// ViewerConfig holds PDF viewer configuration
type ViewerConfig struct {
	Command  string   `mapstructure:"command"`
	Args     []string `mapstructure:"args"`
	PageFlag string   `mapstructure:"page_flag"` // e.g., "--page=" or "-page "
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Dir: defaultDataPath(),
		},
		Import: ImportConfig{
			ProxyURL: importer.DefaultProxyURL,
			MaxBytes: importer.DefaultMaxBytes,
		},
		Telegram: TelegramConfig{
			APIURL: notify.DefaultAPIURL,
		},
		Viewer: ViewerConfig{
			Args: []string{},
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "zenread.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "zenread")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "zenread")
	}
}

// DefaultConfigPath returns the default config directory for the current OS
func DefaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "zenread")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "zenread")
	}
}

// newViper returns a viper instance with defaults and ZENREAD_* env overrides
func newViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()

	// Defaults make every key visible to AutomaticEnv
	v.SetDefault("storage.dir", d.Storage.Dir)
	v.SetDefault("import.proxy_url", d.Import.ProxyURL)
	v.SetDefault("import.max_bytes", d.Import.MaxBytes)
	v.SetDefault("import.user_agent", d.Import.UserAgent)
	v.SetDefault("telegram.api_url", d.Telegram.APIURL)
	v.SetDefault("viewer.command", d.Viewer.Command)
	v.SetDefault("viewer.args", d.Viewer.Args)
	v.SetDefault("viewer.page_flag", d.Viewer.PageFlag)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.level", d.Logging.Level)

	v.SetEnvPrefix("ZENREAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from file and environment.
// An empty configFile searches the default config directory and the working directory.
func LoadConfig(configFile string) (*Config, error) {
	v := newViper()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigPath())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.Storage.Dir = expandHome(cfg.Storage.Dir)
	cfg.Logging.File = expandHome(cfg.Logging.File)
	return cfg, nil
}

// SaveConfig writes cfg as YAML. An empty configFile writes config.yaml in the
// default config directory.
func SaveConfig(cfg *Config, configFile string) error {
	if configFile == "" {
		configFile = filepath.Join(DefaultConfigPath(), "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	// Set fields individually to ensure correct key names (snake_case)
	v.Set("storage.dir", cfg.Storage.Dir)
	v.Set("import.proxy_url", cfg.Import.ProxyURL)
	v.Set("import.max_bytes", cfg.Import.MaxBytes)
	v.Set("import.user_agent", cfg.Import.UserAgent)
	v.Set("telegram.api_url", cfg.Telegram.APIURL)
	v.Set("viewer.command", cfg.Viewer.Command)
	v.Set("viewer.args", cfg.Viewer.Args)
	v.Set("viewer.page_flag", cfg.Viewer.PageFlag)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// expandHome replaces a leading ~ with the user's home directory
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
