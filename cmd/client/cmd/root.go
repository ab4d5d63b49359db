// cmd/client/cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"

	"stefabooks/cmd/client/cmd/books"
	"stefabooks/cmd/client/cmd/cache"
	"stefabooks/internal/app/client"
	"stefabooks/internal/app/client/config"
	"stefabooks/internal/utils/logger"
)

var (
	cfgFile    string
	cfg        *config.Config
	log        *slog.Logger
	app        *client.App
	jsonOutput bool
	catalogURL string
)

var rootCmd = &cobra.Command{
	Use:   "stefabooks",
	Short: "Stefa.Books - локальный кеш каталога книг",
	Long: `Stefa.Books держит локальную копию каталога книг и синхронизирует ее
с сервером, когда отпечаток каталога на сервере меняется.

Поиск и фильтрация работают по локальному кешу без обращения к серверу.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	if catalogURL != "" {
		cfg.CatalogURL = catalogURL
	}

	log = logger.New(cfg.Env)

	app, err = client.New(cfg, log, nil)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	cmd.SetContext(client.WithApp(cmd.Context(), app))
	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	return app.Close()
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		viper.AddConfigPath(filepath.Join(home, ".stefabooks"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return config.Load()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "вывод в формате JSON")
	rootCmd.PersistentFlags().StringVar(&catalogURL, "catalog", "", "URL каталога на сервере")

	rootCmd.AddCommand(cache.CacheCmd)
	cache.CacheCmd.AddCommand(cache.SyncCmd)
	cache.CacheCmd.AddCommand(cache.CheckCmd)
	cache.CacheCmd.AddCommand(cache.StatusCmd)
	cache.CacheCmd.AddCommand(cache.ClearCmd)
	cache.CacheCmd.AddCommand(cache.WatchCmd)

	rootCmd.AddCommand(books.BooksCmd)
	books.BooksCmd.AddCommand(books.ListCmd)
	books.BooksCmd.AddCommand(books.GetCmd)
}
