package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"stefabooks/internal/domain/book"
)

const (
	defaultCatalogURL     = "http://localhost:8080/api/v1/catalog"
	defaultLogLevel       = "info"
	defaultEnv            = "local"
	defaultConfigDir      = ".stefabooks"
	defaultBackend        = BackendFile
	defaultSyncInterval   = 300
	defaultSyncTimeout    = 30
	defaultPageSize       = 1000
	defaultMaxCatalogSize = 50000

	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

type Config struct {
	Env            string `mapstructure:"app_env"`
	CatalogURL     string `mapstructure:"catalog_url"`
	LogLevel       string `mapstructure:"log_level"`
	ConfigDir      string `mapstructure:"config_dir"`
	Backend        string `mapstructure:"cache_backend"`
	CachePath      string `mapstructure:"cache_path"`
	SyncInterval   int    `mapstructure:"sync_interval_seconds"`
	SyncTimeout    int    `mapstructure:"sync_timeout_seconds"`
	PageSize       int    `mapstructure:"page_size"`
	MaxCatalogSize int    `mapstructure:"max_catalog_size"`
	HashAlgorithm  string `mapstructure:"hash_algorithm"`
	WatchStorage   bool   `mapstructure:"watch_storage"`
	// MetricsAddr - адрес для /metrics в режиме watch, пусто - не слушать.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// MustLoad загружает конфигурацию клиента и паникует при ошибке
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("config error: %v", err))
	}
	return cfg
}

// Load читает .env (если есть), переменные окружения и конфиг-файл, уже подключенный к viper.
func Load() (*Config, error) {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}

	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load .env file: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("CATALOG_URL", defaultCatalogURL)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("CACHE_BACKEND", defaultBackend)
	viper.SetDefault("SYNC_INTERVAL_SECONDS", defaultSyncInterval)
	viper.SetDefault("SYNC_TIMEOUT_SECONDS", defaultSyncTimeout)
	viper.SetDefault("PAGE_SIZE", defaultPageSize)
	viper.SetDefault("MAX_CATALOG_SIZE", defaultMaxCatalogSize)
	viper.SetDefault("HASH_ALGORITHM", book.HashRolling)
	viper.SetDefault("WATCH_STORAGE", true)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	backend := viper.GetString("CACHE_BACKEND")
	cachePath := viper.GetString("CACHE_PATH")
	if cachePath == "" {
		cachePath = filepath.Join(configDir, DefaultCacheFile(backend))
	}

	cfg := &Config{
		Env:            viper.GetString("APP_ENV"),
		CatalogURL:     viper.GetString("CATALOG_URL"),
		LogLevel:       viper.GetString("LOG_LEVEL"),
		ConfigDir:      configDir,
		Backend:        backend,
		CachePath:      cachePath,
		SyncInterval:   viper.GetInt("SYNC_INTERVAL_SECONDS"),
		SyncTimeout:    viper.GetInt("SYNC_TIMEOUT_SECONDS"),
		PageSize:       viper.GetInt("PAGE_SIZE"),
		MaxCatalogSize: viper.GetInt("MAX_CATALOG_SIZE"),
		HashAlgorithm:  viper.GetString("HASH_ALGORITHM"),
		WatchStorage:   viper.GetBool("WATCH_STORAGE"),
		MetricsAddr:    viper.GetString("METRICS_ADDR"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultCacheFile returns the file name used for backend inside the config dir.
func DefaultCacheFile(backend string) string {
	switch backend {
	case BackendSQLite:
		return "books.db"
	case BackendBolt:
		return "books.bolt"
	default:
		return "books-cache.json"
	}
}

func (c *Config) Validate() error {
	if c.CatalogURL == "" {
		return fmt.Errorf("catalog_url must not be empty")
	}
	switch c.Backend {
	case BackendFile, BackendSQLite, BackendBolt:
	default:
		return fmt.Errorf("unknown cache_backend %q", c.Backend)
	}
	if c.CachePath == "" {
		return fmt.Errorf("cache_path must not be empty")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.MaxCatalogSize < c.PageSize {
		return fmt.Errorf("max_catalog_size (%d) must not be less than page_size (%d)", c.MaxCatalogSize, c.PageSize)
	}
	if c.SyncTimeout <= 0 {
		return fmt.Errorf("sync_timeout_seconds must be positive")
	}
	if _, err := book.HasherByName(c.HashAlgorithm); err != nil {
		return err
	}
	return nil
}

func (c *Config) SyncIntervalDuration() time.Duration {
	return time.Duration(c.SyncInterval) * time.Second
}

func (c *Config) SyncTimeoutDuration() time.Duration {
	return time.Duration(c.SyncTimeout) * time.Second
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == ""
}
