package cache

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stefabooks/cmd/client/cmd/cmdutil"
)

var metricsAddr string

type status struct {
	Books        int        `json:"books"`
	CacheVersion string     `json:"cache_version"`
	DataHash     string     `json:"data_hash,omitempty"`
	LastSync     *time.Time `json:"last_sync,omitempty"`
	Syncing      bool       `json:"syncing"`
	Backend      string     `json:"backend"`
	Path         string     `json:"path"`
}

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Состояние локального кеша",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.AppFrom(cmd)
		if err != nil {
			return err
		}
		store := app.Store()

		st := status{
			Books:        store.Len(),
			CacheVersion: store.CacheVersion(),
			Syncing:      store.IsSyncing(),
			Backend:      app.Config().Backend,
			Path:         app.Config().CachePath,
		}
		st.DataHash, _ = store.DataHash()
		if t, ok := store.LastSync(); ok {
			st.LastSync = &t
		}

		w := cmd.OutOrStdout()
		if cmdutil.WantJSON(cmd) {
			return cmdutil.PrintJSON(w, st)
		}

		fmt.Fprintln(w, "=== Состояние кеша ===")
		fmt.Fprintf(w, "Хранилище: %s (%s)\n", st.Backend, st.Path)
		fmt.Fprintf(w, "Книг: %d\n", st.Books)
		fmt.Fprintf(w, "Версия: %s\n", st.CacheVersion)
		if st.DataHash != "" {
			fmt.Fprintf(w, "Отпечаток: %s\n", st.DataHash)
		}
		if st.Syncing {
			cmdutil.Info.Fprintln(w, "Идет синхронизация")
		}
		if st.LastSync == nil {
			cmdutil.Warning.Fprintln(w, "Синхронизация еще не выполнялась")
		} else {
			fmt.Fprintf(w, "Последняя синхронизация: %s (%s назад)\n",
				st.LastSync.Format("2006-01-02 15:04:05"),
				time.Since(*st.LastSync).Round(time.Second),
			)
		}
		return nil
	},
}

var ClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Очистить локальный кеш",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.AppFrom(cmd)
		if err != nil {
			return err
		}

		app.Store().ClearCache()

		w := cmd.OutOrStdout()
		if cmdutil.WantJSON(cmd) {
			return cmdutil.PrintJSON(w, map[string]bool{"cleared": true})
		}
		cmdutil.Success.Fprintln(w, "✓ Кеш очищен")
		return nil
	},
}

var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Фоновая синхронизация",
	Long: `Проверяет отпечаток каталога сразу и затем с интервалом sync_interval_seconds,
синхронизируя кеш при изменениях. Работает до Ctrl+C.

С --metrics-addr (или METRICS_ADDR) отдает метрики клиента на /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.AppFrom(cmd)
		if err != nil {
			return err
		}

		cfg := app.Config()
		if metricsAddr != "" {
			cfg.MetricsAddr = metricsAddr
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Каталог: %s, интервал: %v\n", cfg.CatalogURL, cfg.SyncIntervalDuration())
		if cfg.MetricsAddr != "" {
			fmt.Fprintf(w, "Метрики: http://%s/metrics\n", cfg.MetricsAddr)
		}
		return app.Run(cmd.Context())
	},
}

func init() {
	WatchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "адрес для /metrics, например 127.0.0.1:9091")
}
