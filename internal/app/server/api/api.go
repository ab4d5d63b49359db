// GET /api/v1/health                 # Проверка сервиса и базы
// GET /api/v1/catalog                # Страница каталога (limit, cursor)
// GET /api/v1/catalog/fingerprint    # Отпечаток каталога
// GET /metrics                       # Prometheus

package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slog"

	catalogAPI "stefabooks/internal/app/server/api/http/catalog"
	healthAPI "stefabooks/internal/app/server/api/http/health"
	"stefabooks/internal/app/server/api/http/middleware"
	"stefabooks/internal/app/server/api/http/middleware/logger"
	"stefabooks/internal/app/server/api/http/middleware/metrics"
	"stefabooks/internal/domain/catalog"
)

type Handlers struct {
	Health  *healthAPI.Handler
	Catalog *catalogAPI.Handler
}

// Deps - зависимости API. DB может быть nil, Registry тоже (тогда используется глобальный).
type Deps struct {
	Catalog  catalog.Servicer
	DB       healthAPI.Pinger
	Log      *slog.Logger
	Registry *prometheus.Registry
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(deps Deps) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Stefa.Books Catalog API", "1.0.0")
	API := humachi.New(mux, config)

	h := handlers(deps)
	h.Health.SetupRoutes(API)
	h.Catalog.SetupRoutes(API)

	if deps.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}

	return mux
}

func handlers(deps Deps) *Handlers {
	loggerMW := logger.New(deps.Log)
	var registerer prometheus.Registerer
	if deps.Registry != nil {
		registerer = deps.Registry
	}
	metricsMW := metrics.New(registerer)
	middlewares := middleware.NewContainer()

	middlewares.Add(metricsMW.Middleware(), loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(deps.DB, deps.Log, middlewares.GetAllAndClear())

	middlewares.Add(metricsMW.Middleware(), loggerMW.Middleware())
	catalogHandler := catalogAPI.NewHandler(deps.Catalog, deps.Log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:  healthHandler,
		Catalog: catalogHandler,
	}
}
