package catalog

import "errors"

var (
	ErrInvalidCursor = errors.New("invalid catalog cursor")
	ErrUnavailable   = errors.New("catalog is unavailable")
)
