// Package config provides the playerd configuration system: defaults,
// yaml/json file loading, environment overrides via struct tags, validation,
// and change watchers.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server" json:"server"`

	// Database configuration
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Playback engine configuration
	Engines EngineConfig `yaml:"engines" json:"engines"`

	// Asset store configuration
	Assets AssetConfig `yaml:"assets" json:"assets"`

	// Analytics configuration
	Analytics AnalyticsConfig `yaml:"analytics" json:"analytics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host           string        `yaml:"host" json:"host" env:"PLAYERD_HOST" default:"0.0.0.0"`
	Port           int           `yaml:"port" json:"port" env:"PLAYERD_PORT" default:"8090"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout" env:"PLAYERD_READ_TIMEOUT" default:"30s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" json:"write_timeout" env:"PLAYERD_WRITE_TIMEOUT" default:"30s"`
	MaxHeaderBytes int           `yaml:"max_header_bytes" json:"max_header_bytes" env:"PLAYERD_MAX_HEADER_BYTES" default:"1048576"`
	EnableCORS     bool          `yaml:"enable_cors" json:"enable_cors" env:"PLAYERD_ENABLE_CORS" default:"true"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Type         string `yaml:"type" json:"type" env:"DATABASE_TYPE" default:"sqlite"`
	Host         string `yaml:"host" json:"host" env:"POSTGRES_HOST" default:"localhost"`
	Port         int    `yaml:"port" json:"port" env:"POSTGRES_PORT" default:"5432"`
	Username     string `yaml:"username" json:"username" env:"POSTGRES_USER" default:"playerd"`
	Password     string `yaml:"password" json:"-" env:"POSTGRES_PASSWORD"`
	Database     string `yaml:"database" json:"database" env:"POSTGRES_DB" default:"playerd"`
	DataDir      string `yaml:"data_dir" json:"data_dir" env:"PLAYERD_DATA_DIR" default:"./playerd-data"`
	DatabasePath string `yaml:"database_path" json:"database_path" env:"PLAYERD_DATABASE_PATH"`
	LogQueries   bool   `yaml:"log_queries" json:"log_queries" env:"DB_LOG_QUERIES" default:"false"`
}

// EngineConfig holds playback engine discovery and IPC configuration
type EngineConfig struct {
	EngineDir        string        `yaml:"engine_dir" json:"engine_dir" env:"PLAYERD_ENGINE_DIR" default:"./data/engines"`
	DefaultEngine    string        `yaml:"default_engine" json:"default_engine" env:"PLAYERD_DEFAULT_ENGINE"`
	EnableHotReload  bool          `yaml:"enable_hot_reload" json:"enable_hot_reload" env:"PLAYERD_ENGINE_HOT_RELOAD" default:"true"`
	SocketDir        string        `yaml:"socket_dir" json:"socket_dir" env:"PLAYERD_SOCKET_DIR"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout" json:"connect_timeout" env:"PLAYERD_ENGINE_CONNECT_TIMEOUT" default:"10s"`
	ConnectAttempts  int           `yaml:"connect_attempts" json:"connect_attempts" env:"PLAYERD_ENGINE_CONNECT_ATTEMPTS" default:"20"`
	ConnectRetryWait time.Duration `yaml:"connect_retry_wait" json:"connect_retry_wait" env:"PLAYERD_ENGINE_RETRY_WAIT" default:"500ms"`
}

// AssetConfig holds asset store configuration
type AssetConfig struct {
	AssetDir    string `yaml:"asset_dir" json:"asset_dir" env:"PLAYERD_ASSET_DIR"`
	MaxFileSize int64  `yaml:"max_file_size" json:"max_file_size" env:"PLAYERD_MAX_ASSET_SIZE" default:"10737418240"`
}

// AnalyticsConfig holds analytics configuration
type AnalyticsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" env:"PLAYERD_ANALYTICS_ENABLED" default:"true"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"PLAYERD_LOG_LEVEL" default:"info"`
	Format string `yaml:"format" json:"format" env:"PLAYERD_LOG_FORMAT" default:"json"`
	Output string `yaml:"output" json:"output" env:"PLAYERD_LOG_OUTPUT" default:"stdout"`
}

// ConfigManager manages application configuration with reload support
type ConfigManager struct {
	config     *Config
	configPath string
	watchers   []ConfigWatcher
	mu         sync.RWMutex
}

// ConfigWatcher is called when configuration changes
type ConfigWatcher func(oldConfig, newConfig *Config)

var (
	globalConfigManager *ConfigManager
	configOnce          sync.Once
)

// GetConfigManager returns the global configuration manager instance
func GetConfigManager() *ConfigManager {
	configOnce.Do(func() {
		globalConfigManager = NewConfigManager()
	})
	return globalConfigManager
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		config:   DefaultConfig(),
		watchers: make([]ConfigWatcher, 0),
	}
}

// DefaultConfig returns the default application configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8090,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxHeaderBytes: 1 << 20, // 1MB
			EnableCORS:     true,
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: "./playerd-data",
		},
		Engines: EngineConfig{
			EngineDir:        "./data/engines",
			EnableHotReload:  true,
			ConnectTimeout:   10 * time.Second,
			ConnectAttempts:  20,
			ConnectRetryWait: 500 * time.Millisecond,
		},
		Assets: AssetConfig{
			MaxFileSize: 10 * 1024 * 1024 * 1024, // 10GB
		},
		Analytics: AnalyticsConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func (cm *ConfigManager) LoadConfig(configPath string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	oldConfig := *cm.config
	cm.configPath = configPath

	// Start with defaults
	newConfig := DefaultConfig()

	// Load from file if it exists
	if configPath != "" && fileExists(configPath) {
		if err := cm.loadFromFile(configPath, newConfig); err != nil {
			return fmt.Errorf("failed to load config from file: %w", err)
		}
		log.Printf("Configuration loaded from file: %s", configPath)
	}

	// Override with environment variables
	if err := loadStructFromEnv(reflect.ValueOf(newConfig).Elem()); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cm.validateConfig(newConfig); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cm.applyDerivedConfig(newConfig)

	cm.config = newConfig

	for _, watcher := range cm.watchers {
		go watcher(&oldConfig, newConfig)
	}

	return nil
}

// GetConfig returns the current configuration (thread-safe)
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	configCopy := *cm.config
	return &configCopy
}

// AddWatcher adds a configuration change watcher
func (cm *ConfigManager) AddWatcher(watcher ConfigWatcher) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.watchers = append(cm.watchers, watcher)
}

func (cm *ConfigManager) loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	case ".json":
		return json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
}

func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s: %w", fieldType.Name, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(intVal)
		}
	case reflect.Float32, reflect.Float64:
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatVal)
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolVal)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			values := strings.Split(value, ",")
			for i, v := range values {
				values[i] = strings.TrimSpace(v)
			}
			field.Set(reflect.ValueOf(values))
		}
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

func (cm *ConfigManager) validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Type != "sqlite" && config.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}

	if config.Engines.ConnectAttempts < 1 {
		return fmt.Errorf("invalid engine connect attempts: %d", config.Engines.ConnectAttempts)
	}

	if config.Assets.MaxFileSize <= 0 {
		return fmt.Errorf("invalid max asset file size: %d", config.Assets.MaxFileSize)
	}

	return nil
}

func (cm *ConfigManager) applyDerivedConfig(config *Config) {
	if config.Database.DatabasePath == "" && config.Database.Type == "sqlite" {
		config.Database.DatabasePath = filepath.Join(config.Database.DataDir, "playerd.db")
	}

	if config.Assets.AssetDir == "" {
		config.Assets.AssetDir = filepath.Join(config.Database.DataDir, "assets")
	}

	if config.Engines.SocketDir == "" {
		runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
		if runtimeDir != "" {
			config.Engines.SocketDir = filepath.Join(runtimeDir, "playerd")
		} else {
			config.Engines.SocketDir = filepath.Join(os.TempDir(), "playerd")
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Global convenience functions

// Get returns the current global configuration
func Get() *Config {
	return GetConfigManager().GetConfig()
}

// Load loads configuration from the specified path
func Load(configPath string) error {
	return GetConfigManager().LoadConfig(configPath)
}

// AddWatcher adds a global configuration watcher
func AddWatcher(watcher ConfigWatcher) {
	GetConfigManager().AddWatcher(watcher)
}
