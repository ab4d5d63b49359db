package client

import (
	"errors"
	"fmt"
)

var (
	ErrCatalogTooLarge  = errors.New("catalog exceeds max_catalog_size")
	ErrEmptyFingerprint = errors.New("server returned empty fingerprint")
	ErrCatalogChanged   = errors.New("catalog kept changing during sync")
	ErrMissingCursor    = errors.New("server reported more pages without next_cursor")
)

// APIError - ошибка, о которой сообщил сервер каталога (HTTP статус или success:false).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("catalog server error (status %d): %s", e.StatusCode, e.Message)
}
