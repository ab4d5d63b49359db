package client

import (
	"fmt"

	"stefabooks/internal/app/client/config"
	"stefabooks/internal/domain/book"
)

// InitialCacheVersion - версия пустого или только что очищенного кеша.
const InitialCacheVersion = "1.0.0"

// State is the persisted part of the cache. isSyncing is transient and never stored.
type State struct {
	Books        []book.Book `json:"books"`
	LastSync     *int64      `json:"lastSync"`
	CacheVersion string      `json:"cacheVersion"`
	DataHash     *string     `json:"dataHash"`
}

func NewState() *State {
	return &State{
		Books:        []book.Book{},
		CacheVersion: InitialCacheVersion,
	}
}

func (s *State) clone() *State {
	out := &State{
		Books:        cloneBooks(s.Books),
		CacheVersion: s.CacheVersion,
	}
	if s.LastSync != nil {
		v := *s.LastSync
		out.LastSync = &v
	}
	if s.DataHash != nil {
		v := *s.DataHash
		out.DataHash = &v
	}
	return out
}

// normalize fills the gaps left by older or hand-edited files.
func (s *State) normalize() *State {
	if s.Books == nil {
		s.Books = []book.Book{}
	}
	if s.CacheVersion == "" {
		s.CacheVersion = InitialCacheVersion
	}
	return s
}

func (s *State) sameAs(other *State) bool {
	return ptrEqual(s.DataHash, other.DataHash) &&
		ptrEqual(s.LastSync, other.LastSync) &&
		s.CacheVersion == other.CacheVersion &&
		len(s.Books) == len(other.Books)
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Storage - долговременное хранилище зеркала каталога.
type Storage interface {
	// Load returns an empty state when nothing was saved yet.
	Load() (*State, error)
	Save(state *State) error
	// Path is the file backing the storage, empty for in-memory storage.
	Path() string
	Close() error
}

// OpenStorage opens the backend selected in cfg.
func OpenStorage(cfg *config.Config) (Storage, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileStorage(cfg.CachePath)
	case config.BackendSQLite:
		return NewSQLiteStorage(cfg.CachePath)
	case config.BackendBolt:
		return NewBoltStorage(cfg.CachePath)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func cloneBooks(books []book.Book) []book.Book {
	out := make([]book.Book, len(books))
	for i, b := range books {
		out[i] = b.Clone()
	}
	return out
}
