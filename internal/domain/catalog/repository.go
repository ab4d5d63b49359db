package catalog

import (
	"context"

	"stefabooks/internal/domain/book"
)

// Entry - книга вместе с ее позицией в каталоге
type Entry struct {
	Book   book.Book
	Cursor Cursor
}

// Repository - авторитетный источник книг
type Repository interface {
	// List returns up to limit books strictly after the given position, in catalog order.
	// A nil cursor starts from the newest book.
	List(ctx context.Context, limit int, after *Cursor) ([]Entry, error)
	All(ctx context.Context) ([]book.Book, error)
}
