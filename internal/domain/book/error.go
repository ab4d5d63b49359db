package book

import "errors"

var (
	ErrNotFound      = errors.New("book not found")
	ErrDuplicateID   = errors.New("book with this id already exists")
	ErrUnknownHasher = errors.New("unknown hash algorithm")
)
