package cache

import (
	"github.com/spf13/cobra"
)

var CacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Управление локальным кешем каталога",
	Long: `Синхронизация локального кеша с сервером, проверка актуальности,
просмотр состояния и очистка.`,
}
