package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"stefabooks/internal/domain/book"
	"stefabooks/internal/domain/catalog"
)

// memoryRepository keeps books newest first, one minute apart.
type memoryRepository struct {
	books []book.Book
}

var newest = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func (r *memoryRepository) List(_ context.Context, limit int, after *catalog.Cursor) ([]catalog.Entry, error) {
	out := []catalog.Entry{}
	for i, b := range r.books {
		pos := catalog.Cursor{CreatedAt: newest.Add(-time.Duration(i) * time.Minute), ID: b.ID}
		if after != nil && !pos.CreatedAt.Before(after.CreatedAt) &&
			!(pos.CreatedAt.Equal(after.CreatedAt) && pos.ID < after.ID) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, catalog.Entry{Book: b, Cursor: pos})
	}
	return out, nil
}

func (r *memoryRepository) All(context.Context) ([]book.Book, error) {
	return r.books, nil
}

func newTestServer(t *testing.T) (*httptest.Server, []book.Book) {
	t.Helper()
	books := []book.Book{
		{ID: "1", Title: "A", Author: "X"},
		{ID: "2", Title: "B", Author: "Y"},
		{ID: "3", Title: "C", Author: "Z"},
	}
	svc := catalog.NewService(&memoryRepository{books: books}, book.RollingHash, 2, slog.Default())

	mux := New(Deps{Catalog: svc, Log: slog.Default(), Registry: prometheus.NewRegistry()})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, books
}

func TestAPI_CatalogPaging(t *testing.T) {
	srv, _ := newTestServer(t)

	type page struct {
		Success    bool        `json:"success"`
		Data       []book.Book `json:"data"`
		HasMore    bool        `json:"has_more"`
		NextCursor string      `json:"next_cursor"`
	}

	get := func(url string) page {
		resp, err := http.Get(url)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var p page
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
		return p
	}

	first := get(srv.URL + "/api/v1/catalog?limit=100")
	assert.True(t, first.Success)
	assert.Len(t, first.Data, 2, "limit is clamped to max page size")
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextCursor)

	second := get(srv.URL + "/api/v1/catalog?limit=2&cursor=" + url.QueryEscape(first.NextCursor))
	require.Len(t, second.Data, 1)
	assert.Equal(t, "3", second.Data[0].ID)
	assert.False(t, second.HasMore)
	assert.Empty(t, second.NextCursor)
}

func TestAPI_FingerprintMatchesClientHash(t *testing.T) {
	srv, books := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/catalog/fingerprint")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Hash string `json:"hash"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	want, err := book.RollingHash(books)
	require.NoError(t, err)
	assert.Equal(t, want, body.Hash)
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
