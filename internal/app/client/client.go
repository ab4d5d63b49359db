package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slog"

	"stefabooks/internal/app/client/config"
	"stefabooks/internal/domain/book"
)

type App struct {
	config  *config.Config
	log     *slog.Logger
	catalog Catalog
	storage Storage
	store   *Store
	metrics *Metrics
	reg     *prometheus.Registry
	wg      sync.WaitGroup
}

// New собирает клиент: хранилище, HTTP-каталог и зеркало. reg может быть nil,
// тогда метрики клиента пишутся в собственный реестр приложения.
func New(cfg *config.Config, log *slog.Logger, reg *prometheus.Registry) (*App, error) {
	hasher, err := book.HasherByName(cfg.HashAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("failed to select hasher: %w", err)
	}

	storage, err := OpenStorage(cfg)
	if err != nil {
		log.Warn("failed to open cache storage, falling back to memory",
			"backend", cfg.Backend,
			"path", cfg.CachePath,
			"error", err,
		)
		storage = NewMemoryStorage()
	}

	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	catalog := NewHTTPCatalog(cfg.CatalogURL, cfg.SyncTimeoutDuration(), log)
	metrics := NewMetrics(reg)

	store := NewStore(catalog, storage, log,
		WithHasher(hasher),
		WithMetrics(metrics),
		WithStoreConfig(StoreConfig{
			PageSize:       cfg.PageSize,
			MaxCatalogSize: cfg.MaxCatalogSize,
			Timeout:        cfg.SyncTimeoutDuration(),
		}),
	)

	return &App{
		config:  cfg,
		log:     log,
		catalog: catalog,
		storage: storage,
		store:   store,
		metrics: metrics,
		reg:     reg,
	}, nil
}

func (a *App) Store() *Store {
	return a.store
}

func (a *App) Config() *config.Config {
	return a.config
}

// MetricsHandler отдает метрики клиента в формате Prometheus.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{Registry: a.reg})
}

// Run checks the catalog fingerprint right away and then every sync interval, syncing
// when the mirror is stale. With WatchStorage it also follows writes of other processes,
// with MetricsAddr it serves /metrics. Blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.config.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              a.config.MetricsAddr,
			Handler:           a.metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		a.wg.Add(2)
		go func() {
			defer a.wg.Done()
			a.log.Info("serving metrics", "address", a.config.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server stopped", "error", err)
			}
		}()
		go func() {
			defer a.wg.Done()
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Warn("failed to stop metrics server", "error", err)
			}
		}()
	}

	if a.watchEnabled() {
		watcher := NewWatcher(a.store, a.storage.Path(), defaultReloadDebounce, a.log)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := watcher.Run(ctx); err != nil {
				a.log.Warn("cache watcher stopped", "error", err)
			}
		}()
	}

	a.log.Info("client started",
		"catalog", a.config.CatalogURL,
		"backend", a.config.Backend,
		"interval", a.config.SyncIntervalDuration(),
	)

	a.syncIfStale(ctx)
	a.startSync(ctx)

	a.wg.Wait()
	a.log.Info("client stopped")
	return nil
}

func (a *App) metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.MetricsHandler())
	return mux
}

func (a *App) watchEnabled() bool {
	// bbolt держит эксклюзивную блокировку, второй процесс файл не откроет
	return a.config.WatchStorage && a.storage.Path() != "" && a.config.Backend != config.BackendBolt
}

func (a *App) startSync(ctx context.Context) {
	interval := a.config.SyncIntervalDuration()
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.syncIfStale(ctx)
		}
	}
}

func (a *App) syncIfStale(ctx context.Context) {
	if _, _, err := a.store.SyncIfStale(ctx); err != nil && ctx.Err() == nil {
		a.log.Error("sync failed", "error", err)
	}
}

func (a *App) Close() error {
	if err := a.storage.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}
