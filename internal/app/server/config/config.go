package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"stefabooks/internal/domain/book"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultRunAddress      = ":8080"
	defaultMigrations      = "migrations"
	defaultMaxPageSize     = 1000
	defaultShutdownTimeout = 10
)

var envPaths = []string{".env", "../../.env"}

type Config struct {
	Env     string
	DB      DB
	Server  Server
	Logger  Logger
	Catalog Catalog
}

type DB struct {
	DatabaseURI string `mapstructure:"database_uri"`
	Migrations  string `mapstructure:"migrations_path"`
}

type Server struct {
	RunAddress      string        `mapstructure:"run_address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Logger struct {
	LogLevel string `mapstructure:"log_level"`
}

// Catalog настройки выдачи каталога
type Catalog struct {
	MaxPageSize   int    `mapstructure:"max_page_size"`
	HashAlgorithm string `mapstructure:"hash_algorithm"`
}

// MustLoad загружает конфигурацию сервера и паникует при ошибке
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("config error: %v", err))
	}
	return cfg
}

// Load читает первый найденный .env и переменные окружения. Отсутствие .env не ошибка.
func Load() (*Config, error) {
	for _, path := range envPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		break
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", EnvLocal)
	viper.SetDefault("RUN_ADDRESS", defaultRunAddress)
	viper.SetDefault("MIGRATIONS_PATH", defaultMigrations)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_PAGE_SIZE", defaultMaxPageSize)
	viper.SetDefault("HASH_ALGORITHM", book.HashRolling)
	viper.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeout)

	cfg := &Config{
		Env: viper.GetString("APP_ENV"),
		DB: DB{
			DatabaseURI: viper.GetString("DATABASE_URI"),
			Migrations:  viper.GetString("MIGRATIONS_PATH"),
		},
		Server: Server{
			RunAddress:      viper.GetString("RUN_ADDRESS"),
			ShutdownTimeout: time.Duration(viper.GetInt("SHUTDOWN_TIMEOUT_SECONDS")) * time.Second,
		},
		Logger: Logger{LogLevel: viper.GetString("LOG_LEVEL")},
		Catalog: Catalog{
			MaxPageSize:   viper.GetInt("MAX_PAGE_SIZE"),
			HashAlgorithm: viper.GetString("HASH_ALGORITHM"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DB.DatabaseURI == "" {
		return fmt.Errorf("DATABASE_URI must be set")
	}
	if c.Server.RunAddress == "" {
		return fmt.Errorf("RUN_ADDRESS must not be empty")
	}
	if c.Catalog.MaxPageSize <= 0 {
		return fmt.Errorf("MAX_PAGE_SIZE must be positive, got %d", c.Catalog.MaxPageSize)
	}
	if _, err := book.HasherByName(c.Catalog.HashAlgorithm); err != nil {
		return err
	}
	return nil
}
