package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stefabooks/internal/domain/book"
	"stefabooks/internal/utils/logger"
)

func newTestCatalog(t *testing.T, handler http.HandlerFunc) *HTTPCatalog {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPCatalog(srv.URL+"/api/v1/catalog", 2*time.Second, logger.Discard())
}

func TestHTTPCatalog_ListBooks(t *testing.T) {
	catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/catalog", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "eyJhZnRlcl9pZCI6IjQyIn0=", r.URL.Query().Get("cursor"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"has_more":true,"next_cursor":"next-1","data":[
			{"id":"1","title":"The Great Gatsby","author":"F. Scott Fitzgerald","available":true,"cover_url":"https://cdn/1.jpg"}
		]}`))
	})

	page, err := catalog.ListBooks(context.Background(), 50, "eyJhZnRlcl9pZCI6IjQyIn0=")
	require.NoError(t, err)
	require.Len(t, page.Books, 1)
	assert.Equal(t, "The Great Gatsby", page.Books[0].Title)
	assert.JSONEq(t, `"https://cdn/1.jpg"`, string(page.Books[0].Attributes["cover_url"]))
	require.NotNil(t, page.HasMore)
	assert.True(t, *page.HasMore)
	assert.Equal(t, "next-1", page.NextCursor)
}

func TestHTTPCatalog_ListBooksFirstPageWithoutHasMore(t *testing.T) {
	catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("cursor"))
		w.Write([]byte(`{"success":true,"data":null}`))
	})

	page, err := catalog.ListBooks(context.Background(), 1000, "")
	require.NoError(t, err)
	assert.NotNil(t, page.Books)
	assert.Empty(t, page.Books)
	assert.Nil(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
}

func TestHTTPCatalog_ListBooksErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "success false", status: http.StatusOK, body: `{"success":false,"error":"boom"}`, wantStatus: 200, wantMsg: "boom"},
		{name: "server error body", status: http.StatusInternalServerError, body: `{"success":false,"error":"db down"}`, wantStatus: 500, wantMsg: "db down"},
		{name: "problem json", status: http.StatusUnprocessableEntity, body: `{"title":"Unprocessable Entity","detail":"validation failed"}`, wantStatus: 422, wantMsg: "validation failed"},
		{name: "plain text", status: http.StatusBadGateway, body: `bad gateway`, wantStatus: 502},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := catalog.ListBooks(context.Background(), 10, "")
			apiErr, ok := IsAPIError(err)
			require.True(t, ok, "expected APIError, got %v", err)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestHTTPCatalog_ListBooksInvalidJSON(t *testing.T) {
	catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":`))
	})

	_, err := catalog.ListBooks(context.Background(), 10, "")
	assert.ErrorContains(t, err, "failed to decode response")
}

func TestHTTPCatalog_Fingerprint(t *testing.T) {
	catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/catalog/fingerprint", r.URL.Path)
		w.Write([]byte(`{"hash":"0000000000000b62"}`))
	})

	hash, err := catalog.Fingerprint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0000000000000b62", hash)
}

func TestHTTPCatalog_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	catalog := NewHTTPCatalog(url, time.Second, logger.Discard())
	_, err := catalog.Fingerprint(context.Background())
	require.Error(t, err)
	_, ok := IsAPIError(err)
	assert.False(t, ok)
}

func TestStore_WithHTTPCatalogEndToEnd(t *testing.T) {
	served := []book.Book{{ID: "1", Title: "A", Author: "B", Available: true}}
	hash := hashOf(t, served)

	catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/catalog":
			w.Write([]byte(`{"success":true,"data":[{"id":"1","title":"A","author":"B","available":true}]}`))
		case "/api/v1/catalog/fingerprint":
			w.Write([]byte(`{"hash":"` + hash + `"}`))
		default:
			http.NotFound(w, r)
		}
	})

	s, _ := newTestStore(t, catalog)

	assert.True(t, s.CheckForUpdates(context.Background()))

	result, err := s.SyncWithServer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Books)

	got, ok := s.GetBookByID("1")
	require.True(t, ok)
	assert.Equal(t, "A", got.Title)

	assert.False(t, s.CheckForUpdates(context.Background()))
}
