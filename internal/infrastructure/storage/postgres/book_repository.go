package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"stefabooks/internal/domain/book"
	"stefabooks/internal/domain/catalog"
)

const (
	bookColumns = `id, title, author, description, category, age_range, available,
	       cover_url, price_uah, qty_total, qty_available`

	selectBooks = `
	SELECT ` + bookColumns + `
	FROM books
	ORDER BY created_at DESC, id DESC`

	// keyset: строки строго после (created_at, id) в порядке DESC
	selectPage = `
	SELECT ` + bookColumns + `, created_at
	FROM books
	WHERE $2::timestamptz IS NULL OR (created_at, id) < ($2, $3)
	ORDER BY created_at DESC, id DESC
	LIMIT $1`
)

type BookRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewBookRepository(pool *pgxpool.Pool, log *slog.Logger) *BookRepository {
	return &BookRepository{
		pool: pool,
		log:  log.With("component", "book_repository"),
	}
}

func (r *BookRepository) List(ctx context.Context, limit int, after *catalog.Cursor) ([]catalog.Entry, error) {
	var (
		afterTime *time.Time
		afterID   string
	)
	if after != nil {
		afterTime = &after.CreatedAt
		afterID = after.ID
	}

	rows, err := r.pool.Query(ctx, selectPage, limit, afterTime, afterID)
	if err != nil {
		r.log.Error("failed to list books", "limit", limit, "after", afterID, "error", err)
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	entries := []catalog.Entry{}
	for rows.Next() {
		var createdAt time.Time
		b, err := r.scanBook(rows, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		entries = append(entries, catalog.Entry{
			Book:   b,
			Cursor: catalog.Cursor{CreatedAt: createdAt, ID: b.ID},
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}

	return entries, nil
}

func (r *BookRepository) All(ctx context.Context) ([]book.Book, error) {
	rows, err := r.pool.Query(ctx, selectBooks)
	if err != nil {
		r.log.Error("failed to read catalog", "error", err)
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	defer rows.Close()

	return r.scanBooks(rows)
}

func (r *BookRepository) scanBooks(rows pgx.Rows) ([]book.Book, error) {
	books := []book.Book{}
	for rows.Next() {
		b, err := r.scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}

	return books, nil
}

// scanBook reads bookColumns followed by the optional extra destinations.
func (r *BookRepository) scanBook(row pgx.Row, extra ...any) (book.Book, error) {
	var (
		b            book.Book
		description  *string
		category     *string
		ageRange     *string
		coverURL     *string
		priceUAH     *int
		qtyTotal     int
		qtyAvailable int
	)

	dest := []any{
		&b.ID, &b.Title, &b.Author, &description, &category, &ageRange, &b.Available,
		&coverURL, &priceUAH, &qtyTotal, &qtyAvailable,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return book.Book{}, err
	}

	b.Description = deref(description)
	b.Category = deref(category)
	b.AgeRange = deref(ageRange)

	// остальные колонки клиент не интерпретирует, отдаем как есть
	attrs := map[string]any{
		"qty_total":     qtyTotal,
		"qty_available": qtyAvailable,
	}
	if coverURL != nil {
		attrs["cover_url"] = *coverURL
	}
	if priceUAH != nil {
		attrs["price_uah"] = *priceUAH
	}

	b.Attributes = make(map[string]json.RawMessage, len(attrs))
	for k, v := range attrs {
		raw, err := json.Marshal(v)
		if err != nil {
			return book.Book{}, fmt.Errorf("encode %s: %w", k, err)
		}
		b.Attributes[k] = raw
	}

	return b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
