package cache

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stefabooks/cmd/client/cmd/cmdutil"
	"stefabooks/internal/app/client"
)

var ifStale bool

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Загрузить каталог с сервера",
	Long: `Загружает весь каталог постранично и заменяет им локальный кеш.

С флагом --if-stale сначала сравнивает отпечаток сервера с локальным
и синхронизирует только при расхождении.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.AppFrom(cmd)
		if err != nil {
			return err
		}
		store := app.Store()

		var (
			result *client.SyncResult
			synced = true
		)
		if ifStale {
			result, synced, err = store.SyncIfStale(cmd.Context())
		} else {
			result, err = store.SyncWithServer(cmd.Context())
		}
		if err != nil {
			if apiErr, ok := client.IsAPIError(err); ok {
				return fmt.Errorf("сервер вернул ошибку %d: %s", apiErr.StatusCode, apiErr.Message)
			}
			return fmt.Errorf("ошибка синхронизации: %w", err)
		}

		w := cmd.OutOrStdout()
		if cmdutil.WantJSON(cmd) {
			return cmdutil.PrintJSON(w, struct {
				Synced bool               `json:"synced"`
				Result *client.SyncResult `json:"result,omitempty"`
			}{synced, result})
		}

		if !synced {
			cmdutil.Success.Fprintln(w, "✓ Кеш актуален, синхронизация не нужна")
			return nil
		}

		cmdutil.Success.Fprintln(w, "✅ Синхронизация завершена")
		fmt.Fprintf(w, "Книг: %d\n", result.Books)
		fmt.Fprintf(w, "Страниц: %d\n", result.Pages)
		if result.Attempts > 1 {
			fmt.Fprintf(w, "Попыток: %d (каталог менялся во время загрузки)\n", result.Attempts)
		}
		fmt.Fprintf(w, "Версия кеша: %s\n", result.CacheVersion)
		fmt.Fprintf(w, "Отпечаток: %s\n", result.DataHash)
		fmt.Fprintf(w, "Время выполнения: %v\n", result.Duration.Round(time.Millisecond))
		return nil
	},
}

var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Проверить, есть ли обновления на сервере",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.AppFrom(cmd)
		if err != nil {
			return err
		}

		stale := app.Store().CheckForUpdates(cmd.Context())

		w := cmd.OutOrStdout()
		if cmdutil.WantJSON(cmd) {
			return cmdutil.PrintJSON(w, map[string]bool{"stale": stale})
		}

		if stale {
			cmdutil.Warning.Fprintln(w, "⚠️  На сервере есть обновления. Выполните: stefabooks cache sync")
		} else {
			cmdutil.Success.Fprintln(w, "✓ Кеш актуален")
		}
		return nil
	},
}

func init() {
	SyncCmd.Flags().BoolVar(&ifStale, "if-stale", false, "синхронизировать только при изменении каталога")
}
