package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"stefabooks/internal/domain/book"
)

// Catalog - удаленный источник каталога книг.
type Catalog interface {
	// ListBooks returns one page of the authoritative catalog.
	// An empty cursor requests the first page.
	ListBooks(ctx context.Context, limit int, cursor string) (*CatalogPage, error)
	// Fingerprint returns the server-side hash of the full catalog.
	Fingerprint(ctx context.Context) (string, error)
}

// CatalogPage is one response of the catalog endpoint. HasMore is nil when the server
// does not report it; the page length decides then.
type CatalogPage struct {
	Books      []book.Book
	HasMore    *bool
	NextCursor string
}

type catalogResponse struct {
	Success    bool        `json:"success"`
	Data       []book.Book `json:"data"`
	Error      string      `json:"error,omitempty"`
	HasMore    *bool       `json:"has_more,omitempty"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

type fingerprintResponse struct {
	Hash string `json:"hash"`
}

// HTTPCatalog talks to GET <catalog> and GET <catalog>/fingerprint.
type HTTPCatalog struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	userAgent string
}

func NewHTTPCatalog(baseURL string, timeout time.Duration, log *slog.Logger) *HTTPCatalog {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 2,
		},
	}

	return &HTTPCatalog{
		client:    client,
		log:       log.With("component", "catalog"),
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "StefaBooks-Client/1.0",
	}
}

func (h *HTTPCatalog) ListBooks(ctx context.Context, limit int, cursor string) (*CatalogPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	resp, err := h.doRequest(ctx, h.baseURL+"?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var result catalogResponse
	if err := h.parseResponse(resp, &result); err != nil {
		return nil, err
	}

	if !result.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: result.Error}
	}

	books := result.Data
	if books == nil {
		books = []book.Book{}
	}

	return &CatalogPage{Books: books, HasMore: result.HasMore, NextCursor: result.NextCursor}, nil
}

func (h *HTTPCatalog) Fingerprint(ctx context.Context) (string, error) {
	resp, err := h.doRequest(ctx, h.baseURL+"/fingerprint")
	if err != nil {
		return "", err
	}

	var result fingerprintResponse
	if err := h.parseResponse(resp, &result); err != nil {
		return "", err
	}

	return result.Hash, nil
}

func (h *HTTPCatalog) doRequest(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", h.userAgent)

	h.log.Debug("sending request", "url", req.URL.String())

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

func (h *HTTPCatalog) parseResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	h.log.Debug("received response", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// huma отдает ошибки как problem+json с полем detail
		var errResp struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, &errResp); err == nil {
			apiErr.Message = errResp.Error
			if apiErr.Message == "" {
				apiErr.Message = errResp.Detail
			}
		}
		return apiErr
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
