// Package config loads settings for the editor and the persistence server
// from an optional YAML file, an optional .env file and KANBAN_* environment
// variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configFileName = "kanban"
	configFileType = "yaml"
	envPrefix      = "KANBAN"
)

// Config keys.
const (
	KeyAPIURL         = "api_url"
	KeyRequestTimeout = "request_timeout"
	KeyDragThreshold  = "drag_threshold"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
	KeyLogFile        = "log_file"
	KeyServerAddr     = "server.addr"
	KeyServerDBPath   = "server.db_path"
	KeyServerRedis    = "server.redis_addr"
	KeyServerCacheTTL = "server.cache_ttl"
	KeyServerOrigins  = "server.allow_origins"
	KeyServerSeed     = "server.seed"
)

// Config holds all settings.
type Config struct {
	APIURL         string        `mapstructure:"api_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	DragThreshold  int           `mapstructure:"drag_threshold"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	LogFile        string        `mapstructure:"log_file"`
	Server         ServerConfig  `mapstructure:"server"`
}

// ServerConfig holds the persistence server settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	DBPath       string        `mapstructure:"db_path"`
	RedisAddr    string        `mapstructure:"redis_addr"` // Empty disables the cache
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	AllowOrigins string        `mapstructure:"allow_origins"`
	Seed         bool          `mapstructure:"seed"` // Create a demo board in an empty database
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIURL, "http://localhost:5000/api")
	v.SetDefault(KeyRequestTimeout, "10s")
	v.SetDefault(KeyDragThreshold, 8)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLogFile, "kanban.log")
	v.SetDefault(KeyServerAddr, ":5000")
	v.SetDefault(KeyServerDBPath, "kanban.db")
	v.SetDefault(KeyServerRedis, "")
	v.SetDefault(KeyServerCacheTTL, "30s")
	v.SetDefault(KeyServerOrigins, "*")
	v.SetDefault(KeyServerSeed, false)
}

// Load reads the configuration. If configFile is empty, kanban.yaml is looked
// up in the working directory and then $HOME/.config/kanban; a missing file
// is not an error. An explicitly named file must exist.
func Load(configFile string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "kanban"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("api_url must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.DragThreshold <= 0 {
		return fmt.Errorf("drag_threshold must be positive, got %d", c.DragThreshold)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}
