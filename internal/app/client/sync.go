package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stefabooks/internal/domain/book"
)

const syncKey = "catalog"

// SyncResult результат синхронизации
type SyncResult struct {
	Books        int           `json:"books"`
	Pages        int           `json:"pages"`
	CacheVersion string        `json:"cache_version"`
	DataHash     string        `json:"data_hash"`
	Duration     time.Duration `json:"duration"`
	// Attempts counts full catalog walks; more than one means the catalog changed during a walk.
	Attempts int `json:"attempts"`
	// Shared is true when the result came from a sync started by another caller.
	Shared bool `json:"shared"`
}

// SyncWithServer replaces the mirror with the full server catalog.
//
// Concurrent calls share one in-flight fetch and get the same result. The fetch runs
// under its own timeout, detached from ctx: a caller that gives up does not cancel
// the sync for the others. On any failure books and lastSync stay as they were.
func (s *Store) SyncWithServer(ctx context.Context) (*SyncResult, error) {
	ch := s.group.DoChan(syncKey, func() (any, error) {
		s.syncing.Store(true)
		defer s.syncing.Store(false)

		syncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.Timeout)
		defer cancel()

		return s.syncOnce(syncCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		result := *res.Val.(*SyncResult)
		result.Shared = res.Shared
		return &result, nil
	}
}

func (s *Store) syncOnce(ctx context.Context) (*SyncResult, error) {
	started := time.Now()
	s.log.Info("sync started")

	books, pages, attempts, err := s.fetchConsistent(ctx)
	if err != nil {
		s.metrics.ObserveSync(time.Since(started), err)
		s.log.Warn("sync failed", "pages", pages, "attempts", attempts, "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.state.Books = books
	s.rehashLocked()
	lastSync := s.now().UnixMilli()
	s.state.LastSync = &lastSync
	s.state.CacheVersion = nextCacheVersion(s.state.CacheVersion)
	s.persistLocked()

	result := &SyncResult{
		Books:        len(books),
		Pages:        pages,
		CacheVersion: s.state.CacheVersion,
		Duration:     time.Since(started),
		Attempts:     attempts,
	}
	if s.state.DataHash != nil {
		result.DataHash = *s.state.DataHash
	}
	s.mu.Unlock()

	s.metrics.ObserveSync(result.Duration, nil)
	s.log.Info("sync finished",
		"books", result.Books,
		"pages", result.Pages,
		"attempts", result.Attempts,
		"version", result.CacheVersion,
		"duration", result.Duration,
	)

	return result, nil
}

// fetchConsistent walks the catalog and checks the assembled pages against the server
// fingerprint. A mismatch means rows changed between page requests; the walk is repeated
// up to config.Attempts times.
func (s *Store) fetchConsistent(ctx context.Context) (books []book.Book, pages, attempts int, err error) {
	for attempts < s.config.Attempts {
		attempts++

		var n int
		books, n, err = s.fetchAll(ctx)
		pages += n
		if err != nil {
			return nil, pages, attempts, err
		}

		local, err := s.hasher(books)
		if err != nil {
			return nil, pages, attempts, fmt.Errorf("failed to hash fetched catalog: %w", err)
		}

		remote, err := s.catalog.Fingerprint(ctx)
		if err == nil && remote == "" {
			err = ErrEmptyFingerprint
		}
		if err != nil {
			return nil, pages, attempts, fmt.Errorf("failed to verify fetched catalog: %w", err)
		}

		if local == remote {
			return books, pages, attempts, nil
		}
		s.log.Warn("catalog changed during sync, retrying", "attempt", attempts, "local", local, "remote", remote)
	}

	return nil, pages, attempts, fmt.Errorf("%w: %d attempts", ErrCatalogChanged, attempts)
}

// fetchAll follows next_cursor until the server reports the last page.
func (s *Store) fetchAll(ctx context.Context) ([]book.Book, int, error) {
	limit := s.config.PageSize
	books := []book.Book{}
	cursor := ""
	pages := 0

	for {
		page, err := s.catalog.ListBooks(ctx, limit, cursor)
		if err != nil {
			return nil, pages, fmt.Errorf("failed to fetch catalog page %d: %w", pages+1, err)
		}
		pages++

		books = append(books, page.Books...)
		if len(books) > s.config.MaxCatalogSize {
			return nil, pages, fmt.Errorf("%w: more than %d books", ErrCatalogTooLarge, s.config.MaxCatalogSize)
		}

		if len(page.Books) == 0 {
			return books, pages, nil
		}
		if page.HasMore == nil {
			// сервер без has_more: короткая страница или отсутствие курсора - конец
			if len(page.Books) < limit || page.NextCursor == "" {
				return books, pages, nil
			}
		} else if !*page.HasMore {
			return books, pages, nil
		} else if page.NextCursor == "" {
			return nil, pages, ErrMissingCursor
		}

		cursor = page.NextCursor
	}
}

// CheckForUpdates сравнивает отпечаток сервера с локальным dataHash.
// Любая ошибка трактуется как "обновлений нет".
func (s *Store) CheckForUpdates(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	remote, err := s.catalog.Fingerprint(ctx)
	if err == nil && remote == "" {
		err = ErrEmptyFingerprint
	}
	if err != nil {
		s.metrics.ObserveCheck("error")
		s.log.Warn("failed to check for updates", "error", err)
		return false
	}

	local, ok := s.DataHash()
	stale := !ok || local != remote

	if stale {
		s.metrics.ObserveCheck("stale")
	} else {
		s.metrics.ObserveCheck("fresh")
	}
	s.log.Debug("update check", "local", local, "remote", remote, "stale", stale)

	return stale
}

// SyncIfStale syncs only when CheckForUpdates reports a difference.
// synced is false when the mirror was considered fresh.
func (s *Store) SyncIfStale(ctx context.Context) (result *SyncResult, synced bool, err error) {
	if !s.CheckForUpdates(ctx) {
		return nil, false, nil
	}

	result, err = s.SyncWithServer(ctx)
	if err != nil {
		return nil, false, err
	}
	return result, true, nil
}

// nextCacheVersion увеличивает patch-компоненту. Нечитаемая версия начинается заново с InitialCacheVersion.
func nextCacheVersion(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return nextCacheVersion(InitialCacheVersion)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nextCacheVersion(InitialCacheVersion)
		}
		nums[i] = n
	}

	return fmt.Sprintf("%d.%d.%d", nums[0], nums[1], nums[2]+1)
}

// IsAPIError reports whether err came from the catalog server rather than the transport.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
