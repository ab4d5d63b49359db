package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stefabooks/internal/app/client"
	"stefabooks/internal/app/client/config"
	"stefabooks/internal/domain/book"
	"stefabooks/internal/utils/logger"
)

var testRoot = func() *cobra.Command {
	root := &cobra.Command{Use: "stefabooks", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().Bool("json", false, "вывод в формате JSON")
	root.AddCommand(CacheCmd)
	CacheCmd.AddCommand(SyncCmd, CheckCmd, StatusCmd, ClearCmd, WatchCmd)
	return root
}()

var catalogBooks = []book.Book{
	{ID: "1", Title: "Кобзар", Author: "Тарас Шевченко", Category: "poetry", AgeRange: "14+", Available: true},
	{ID: "2", Title: "Котигорошко", Author: "Народна казка", Category: "fairy-tales", AgeRange: "3-5"},
}

type testCatalog struct {
	url    string
	status atomic.Int32
	hash   atomic.Value
}

// newTestCatalog отдает catalogBooks одной страницей. status != 200 ломает все ответы.
func newTestCatalog(t *testing.T) *testCatalog {
	t.Helper()
	hash, err := book.RollingHash(catalogBooks)
	require.NoError(t, err)

	c := &testCatalog{}
	c.status.Store(http.StatusOK)
	c.hash.Store(hash)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if status := int(c.status.Load()); status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{"detail": "database is unavailable"})
			return
		}
		switch r.URL.Path {
		case "/api/v1/catalog":
			json.NewEncoder(w).Encode(map[string]any{"success": true, "data": catalogBooks})
		case "/api/v1/catalog/fingerprint":
			json.NewEncoder(w).Encode(map[string]string{"hash": c.hash.Load().(string)})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c.url = srv.URL + "/api/v1/catalog"
	return c
}

func newTestApp(t *testing.T, catalogURL string) *client.App {
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

	app, err := client.New(cfg, logger.Discard(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	return app
}

// execute запускает подкоманду cache с app в контексте и возвращает вывод.
func execute(t *testing.T, app *client.App, sub *cobra.Command, args ...string) (string, error) {
	t.Helper()

	// флаги и контекст подкоманд cobra сохраняет между запусками
	require.NoError(t, testRoot.PersistentFlags().Set("json", "false"))
	require.NoError(t, SyncCmd.Flags().Set("if-stale", "false"))
	sub.SetContext(client.WithApp(context.Background(), app))

	var out bytes.Buffer
	testRoot.SetOut(&out)
	testRoot.SetErr(&out)
	testRoot.SetArgs(append([]string{"cache", sub.Name()}, args...))

	err := testRoot.Execute()
	return out.String(), err
}

func TestSyncCmd(t *testing.T) {
	app := newTestApp(t, newTestCatalog(t).url)

	out, err := execute(t, app, SyncCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Синхронизация завершена")
	assert.Contains(t, out, "Книг: 2")
	assert.NotContains(t, out, "Попыток")
	assert.Equal(t, 2, app.Store().Len())
}

func TestSyncCmd_JSON(t *testing.T) {
	app := newTestApp(t, newTestCatalog(t).url)

	out, err := execute(t, app, SyncCmd, "--json")
	require.NoError(t, err)

	var resp struct {
		Synced bool              `json:"synced"`
		Result client.SyncResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Synced)
	assert.Equal(t, 2, resp.Result.Books)
	assert.Equal(t, 1, resp.Result.Pages)
	assert.Equal(t, 1, resp.Result.Attempts)
}

func TestSyncCmd_IfStale(t *testing.T) {
	app := newTestApp(t, newTestCatalog(t).url)

	_, err := execute(t, app, SyncCmd)
	require.NoError(t, err)

	out, err := execute(t, app, SyncCmd, "--if-stale")
	require.NoError(t, err)
	assert.Contains(t, out, "синхронизация не нужна")

	out, err = execute(t, app, SyncCmd, "--if-stale", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"synced": false}`, out)
}

func TestSyncCmd_ServerError(t *testing.T) {
	catalog := newTestCatalog(t)
	catalog.status.Store(http.StatusServiceUnavailable)
	app := newTestApp(t, catalog.url)

	_, err := execute(t, app, SyncCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "сервер вернул ошибку 503: database is unavailable")
	assert.Equal(t, 0, app.Store().Len())
}

func TestCheckCmd(t *testing.T) {
	catalog := newTestCatalog(t)
	app := newTestApp(t, catalog.url)

	out, err := execute(t, app, CheckCmd, "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"stale": true}`, out, "empty mirror is stale")

	_, err = execute(t, app, SyncCmd)
	require.NoError(t, err)

	out, err = execute(t, app, CheckCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Кеш актуален")

	catalog.hash.Store("00000000deadbeef")
	out, err = execute(t, app, CheckCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "есть обновления")
}

func TestCheckCmd_ServerDownIsNotStale(t *testing.T) {
	catalog := newTestCatalog(t)
	catalog.status.Store(http.StatusInternalServerError)
	app := newTestApp(t, catalog.url)

	out, err := execute(t, app, CheckCmd, "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"stale": false}`, out)
}

func TestStatusCmd(t *testing.T) {
	app := newTestApp(t, newTestCatalog(t).url)

	out, err := execute(t, app, StatusCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Книг: 0")
	assert.Contains(t, out, "Синхронизация еще не выполнялась")

	_, err = execute(t, app, SyncCmd)
	require.NoError(t, err)

	out, err = execute(t, app, StatusCmd, "--json")
	require.NoError(t, err)

	var st status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 2, st.Books)
	assert.Equal(t, config.BackendFile, st.Backend)
	assert.Equal(t, app.Config().CachePath, st.Path)
	assert.NotEmpty(t, st.DataHash)
	assert.NotNil(t, st.LastSync)
	assert.False(t, st.Syncing)
}

func TestClearCmd(t *testing.T) {
	app := newTestApp(t, newTestCatalog(t).url)

	_, err := execute(t, app, SyncCmd)
	require.NoError(t, err)
	require.Equal(t, 2, app.Store().Len())

	out, err := execute(t, app, ClearCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Кеш очищен")
	assert.Equal(t, 0, app.Store().Len())
	_, ok := app.Store().LastSync()
	assert.False(t, ok)

	out, err = execute(t, app, ClearCmd, "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"cleared": true}`, out)
}

func TestCommandsRequireApp(t *testing.T) {
	for _, sub := range []*cobra.Command{SyncCmd, CheckCmd, StatusCmd, ClearCmd, WatchCmd} {
		t.Run(sub.Name(), func(t *testing.T) {
			sub.SetContext(context.Background())
			err := sub.RunE(sub, nil)
			assert.Error(t, err)
		})
	}
}
