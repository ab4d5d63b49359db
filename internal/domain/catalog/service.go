package catalog

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/singleflight"

	"stefabooks/internal/domain/book"
)

const defaultFingerprintTimeout = 10 * time.Second

type Servicer interface {
	List(ctx context.Context, limit int, cursor string) (Page, error)
	Fingerprint(ctx context.Context) (string, error)
}

// Page - одна страница каталога. NextCursor пуст на последней странице.
type Page struct {
	Books      []book.Book
	HasMore    bool
	NextCursor string
}

type Service struct {
	repo               Repository
	hasher             book.Hasher
	maxPageSize        int
	fingerprintTimeout time.Duration
	log                *slog.Logger
	group              singleflight.Group
}

func NewService(repo Repository, hasher book.Hasher, maxPageSize int, log *slog.Logger) *Service {
	if hasher == nil {
		hasher = book.RollingHash
	}

	return &Service{
		repo:               repo,
		hasher:             hasher,
		maxPageSize:        maxPageSize,
		fingerprintTimeout: defaultFingerprintTimeout,
		log:                log.With("component", "catalog_service"),
	}
}

// List clamps limit to [1, maxPageSize]; zero or negative means a full page.
// Pages are keyed by the position of the last book, so rows inserted or deleted
// between requests never shift the next page.
func (s *Service) List(ctx context.Context, limit int, cursor string) (Page, error) {
	after, err := DecodeCursor(cursor)
	if err != nil {
		return Page{}, err
	}

	if limit <= 0 || limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	// одна лишняя строка показывает, есть ли следующая страница
	entries, err := s.repo.List(ctx, limit+1, after)
	if err != nil {
		s.log.Error("failed to list catalog", "limit", limit, "cursor", cursor, "error", err)
		return Page{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	page := Page{Books: []book.Book{}}
	if len(entries) > limit {
		entries = entries[:limit]
		page.HasMore = true
		page.NextCursor = EncodeCursor(entries[limit-1].Cursor)
	}
	for _, e := range entries {
		page.Books = append(page.Books, e.Book)
	}

	return page, nil
}

// Fingerprint hashes the whole catalog. Concurrent requests share one database read,
// which runs detached from the first caller so its cancellation does not fail the others.
func (s *Service) Fingerprint(ctx context.Context) (string, error) {
	ch := s.group.DoChan("fingerprint", func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fingerprintTimeout)
		defer cancel()

		books, err := s.repo.All(readCtx)
		if err != nil {
			return "", err
		}
		return s.hasher(books)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.log.Error("failed to compute fingerprint", "error", res.Err)
			return "", fmt.Errorf("%w: %v", ErrUnavailable, res.Err)
		}
		return res.Val.(string), nil
	}
}
