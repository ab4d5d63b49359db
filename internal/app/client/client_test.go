package client

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stefabooks/internal/app/client/config"
	"stefabooks/internal/domain/book"
	"stefabooks/internal/utils/logger"
)

// catalogServer отдает books одной страницей и их отпечаток.
func catalogServer(t *testing.T, books []book.Book) string {
	t.Helper()
	hash := hashOf(t, books)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/catalog":
			json.NewEncoder(w).Encode(map[string]any{"success": true, "data": books})
		case "/api/v1/catalog/fingerprint":
			json.NewEncoder(w).Encode(map[string]string{"hash": hash})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return srv.URL + "/api/v1/catalog"
}

func newTestApp(t *testing.T, catalogURL string) *App {
	t.Helper()
	cfg := &config.Config{
		Env:            "local",
		CatalogURL:     catalogURL,
		Backend:        config.BackendFile,
		CachePath:      filepath.Join(t.TempDir(), "books-cache.json"),
		SyncTimeout:    5,
		PageSize:       100,
		MaxCatalogSize: 1000,
		HashAlgorithm:  book.HashRolling,
	}

	app, err := New(cfg, logger.Discard(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	return app
}

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestApp_MetricsHandlerExposesSyncAndChecks(t *testing.T) {
	app := newTestApp(t, catalogServer(t, []book.Book{bookA, bookB}))
	ctx := context.Background()

	_, err := app.Store().SyncWithServer(ctx)
	require.NoError(t, err)
	assert.False(t, app.Store().CheckForUpdates(ctx))

	body := scrape(t, app.MetricsHandler())
	assert.Contains(t, body, `stefabooks_client_sync_duration_seconds_count{status="success"} 1`)
	assert.Contains(t, body, `stefabooks_client_update_checks_total{outcome="fresh"} 1`)
	assert.Contains(t, body, "stefabooks_client_cached_books 2")
}

func TestApp_RunServesMetrics(t *testing.T) {
	app := newTestApp(t, catalogServer(t, []book.Book{bookA}))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	app.Config().MetricsAddr = addr

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		body = string(data)
		// первая проверка в Run находит пустое зеркало и синхронизирует его
		return app.Store().Len() == 1
	}, 3*time.Second, 20*time.Millisecond)

	assert.Contains(t, body, "stefabooks_client_update_checks_total")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestApp_RunWithoutMetricsAddr(t *testing.T) {
	app := newTestApp(t, catalogServer(t, []book.Book{bookA}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, app.Run(ctx))
	assert.Equal(t, 1, app.Store().Len())
}
