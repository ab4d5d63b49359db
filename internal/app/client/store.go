package client

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/singleflight"

	"stefabooks/internal/domain/book"
)

const (
	defaultPageSize       = 1000
	defaultMaxCatalogSize = 50000
	defaultSyncTimeout    = 30 * time.Second
	defaultSyncAttempts   = 3
)

// StoreConfig ограничения синхронизации
type StoreConfig struct {
	PageSize       int
	MaxCatalogSize int
	Timeout        time.Duration
	// Attempts limits catalog walks per sync when the fingerprint check fails.
	Attempts int
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	if c.MaxCatalogSize <= 0 {
		c.MaxCatalogSize = defaultMaxCatalogSize
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultSyncTimeout
	}
	if c.Attempts <= 0 {
		c.Attempts = defaultSyncAttempts
	}
	return c
}

// Store - локальное зеркало каталога. Чтение идет из памяти, каждая мутация
// пересчитывает dataHash и сохраняется в Storage.
type Store struct {
	mu      sync.RWMutex
	state   *State
	syncing atomic.Bool
	group   singleflight.Group

	catalog Catalog
	storage Storage
	hasher  book.Hasher
	metrics *Metrics
	log     *slog.Logger
	config  StoreConfig
	now     func() time.Time
}

type StoreOption func(*Store)

func WithHasher(h book.Hasher) StoreOption {
	return func(s *Store) { s.hasher = h }
}

func WithMetrics(m *Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

func WithStoreConfig(cfg StoreConfig) StoreOption {
	return func(s *Store) { s.config = cfg }
}

// WithClock подменяет источник времени для lastSync
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore loads the persisted state from storage. An unreadable state is logged
// and the store starts empty; the next save overwrites it.
func NewStore(catalog Catalog, storage Storage, log *slog.Logger, opts ...StoreOption) *Store {
	s := &Store{
		catalog: catalog,
		storage: storage,
		hasher:  book.RollingHash,
		log:     log.With("component", "store"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.config = s.config.withDefaults()

	state, err := storage.Load()
	if err != nil {
		s.log.Warn("failed to load cache, starting empty", "path", storage.Path(), "error", err)
		state = NewState()
	}
	s.state = state
	s.metrics.SetState(len(state.Books), state.LastSync)

	s.log.Debug("cache loaded",
		"books", len(state.Books),
		"version", state.CacheVersion,
	)

	return s
}

// SetBooks заменяет всю коллекцию. Дубликаты id не отклоняются.
func (s *Store) SetBooks(books []book.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Books = cloneBooks(books)
	s.commitLocked()
}

// AddBook appends b. A book with the same id already in the store is rejected with book.ErrDuplicateID.
func (s *Store) AddBook(b book.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := book.FindByID(s.state.Books, b.ID); ok {
		return book.ErrDuplicateID
	}

	s.state.Books = append(s.state.Books, b.Clone())
	s.commitLocked()
	return nil
}

// UpdateBook merges p into the first book with the given id. Unknown ids are ignored.
func (s *Store) UpdateBook(id string, p book.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.state.Books, func(b book.Book) bool { return b.ID == id })
	if i < 0 {
		return
	}

	s.state.Books[i] = book.Apply(s.state.Books[i], p)
	s.commitLocked()
}

// RemoveBook deletes every entry with the given id.
func (s *Store) RemoveBook(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.state.Books)
	s.state.Books = slices.DeleteFunc(s.state.Books, func(b book.Book) bool { return b.ID == id })
	if len(s.state.Books) == before {
		return
	}
	s.commitLocked()
}

// ClearCache сбрасывает зеркало в начальное состояние
func (s *Store) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = NewState()
	s.persistLocked()
	s.log.Info("cache cleared")
}

func (s *Store) GetBookByID(id string) (book.Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := book.FindByID(s.state.Books, id)
	if !ok {
		return book.Book{}, false
	}
	return b.Clone(), true
}

func (s *Store) GetBooksByCategory(categoryID string) []book.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBooks(book.ByCategory(s.state.Books, categoryID))
}

func (s *Store) GetBooksByAgeCategory(ageRangeID string) []book.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBooks(book.ByAgeRange(s.state.Books, ageRangeID))
}

func (s *Store) SearchBooks(query string) []book.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBooks(book.Search(s.state.Books, query))
}

func (s *Store) GetAvailableBooks() []book.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBooks(book.Available(s.state.Books))
}

func (s *Store) GetFilteredBooks(f book.Filter) []book.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBooks(book.Filtered(s.state.Books, f))
}

// Books returns every cached book in store order.
func (s *Store) Books() []book.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBooks(s.state.Books)
}

// State returns a copy of the persisted part of the cache.
func (s *Store) State() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// LastSync returns the time of the last successful sync.
func (s *Store) LastSync() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.LastSync == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*s.state.LastSync), true
}

// DataHash returns the fingerprint of the mirror, false when it is absent.
func (s *Store) DataHash() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.DataHash == nil {
		return "", false
	}
	return *s.state.DataHash, true
}

func (s *Store) CacheVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CacheVersion
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Books)
}

// IsSyncing reports whether a sync with the server is in flight.
func (s *Store) IsSyncing() bool {
	return s.syncing.Load()
}

// Reload перечитывает хранилище, если его изменил другой процесс.
// Возвращает true, если состояние в памяти было заменено.
func (s *Store) Reload() (bool, error) {
	state, err := s.storage.Load()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.sameAs(state) {
		return false, nil
	}

	s.state = state
	s.metrics.IncReloads()
	s.metrics.SetState(len(state.Books), state.LastSync)
	s.log.Info("cache reloaded from storage",
		"books", len(state.Books),
		"version", state.CacheVersion,
	)

	return true, nil
}

// commitLocked пересчитывает хеш и сохраняет состояние. Вызывать под s.mu.
func (s *Store) commitLocked() {
	s.rehashLocked()
	s.persistLocked()
}

func (s *Store) rehashLocked() {
	hash, err := s.hasher(s.state.Books)
	if err != nil {
		s.log.Error("failed to compute data hash", "error", err)
		s.state.DataHash = nil
		return
	}
	s.state.DataHash = &hash
}

// persistLocked keeps the in-memory mirror even when the write fails.
func (s *Store) persistLocked() {
	s.metrics.SetState(len(s.state.Books), s.state.LastSync)

	if err := s.storage.Save(s.state); err != nil {
		s.metrics.IncPersistErrors()
		s.log.Error("failed to persist cache", "path", s.storage.Path(), "error", err)
	}
}
